package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagSTUNAddress string
	flagHelp        bool
)

func init() {
	flag.StringVarP(&flagSTUNAddress, "stun-address", "s", "stun:stun.l.google.com:19302", "STUN server address")
	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
}

const helpString = `Peer connection negotiation daemon

Usage: alohartcd [OPTION]...

Network:
  -s, --stun-address=URI STUN server address (default: stun:stun.l.google.com:19302)

Miscellaneous:
  -h, --help             Prints this help message and exits

Please report bugs to: aloha@lanikailabs.com
AlohaRTC home page: https://alohartc.com`

// Help information is printed and program exits
func help() {
	r := color.New(color.FgRed)
	y := color.New(color.FgYellow)
	b := color.New(color.FgCyan)

	//         _         _                   _
	//   __ _ | |  ___  | |__    __ _  _ __ | |_  ___
	//  / _` || | / _ \ | '_ \  / _` || '__|| __|/ __|
	// | (_| || || (_) || | | || (_| || |   | |_| (__
	//  \__,_||_| \___/ |_| |_| \__,_||_|    \__|\___|

	// Line 1
	r.Printf("        ")
	y.Printf(" _ ")
	b.Printf("       ")
	y.Printf(" _     ")
	r.Printf("       ")
	y.Printf("      ")
	b.Printf(" _  ")
	y.Println("     ")

	// Line 2
	r.Printf("   __ _ ")
	y.Printf("| |")
	b.Printf("  ___  ")
	y.Printf("| |__  ")
	r.Printf("  __ _ ")
	y.Printf(" _ __ ")
	b.Printf("| |_ ")
	y.Println(" ___ ")

	// Line 3
	r.Printf("  / _` |")
	y.Printf("| |")
	b.Printf(" / _ \\ ")
	y.Printf("| '_ \\ ")
	r.Printf(" / _` |")
	y.Printf("| '__|")
	b.Printf("| __|")
	y.Println("/ __|")

	// Line 4
	r.Printf(" | (_| |")
	y.Printf("| |")
	b.Printf("| (_) |")
	y.Printf("| | | |")
	r.Printf("| (_| |")
	y.Printf("| |   ")
	b.Printf("| |_")
	y.Println("| (__ ")

	// Line 5
	r.Printf("  \\__,_|")
	y.Printf("|_|")
	b.Printf(" \\___/ ")
	y.Printf("|_| |_|")
	r.Printf(" \\__,_|")
	y.Printf("|_|   ")
	b.Printf(" \\__|")
	y.Println("\\___|")

	fmt.Println(helpString)
}

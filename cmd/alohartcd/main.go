// Copyright (c) 2019 Lanikai Labs. All rights reserved.

package main

import (
	"context"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/lanikai/rtcpeer"
	"github.com/lanikai/rtcpeer/internal/sdp"
	"github.com/lanikai/rtcpeer/internal/signaling"
)

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile | log.Lmicroseconds)

	client, err := signaling.NewClient(handleSession)
	if err != nil {
		log.Fatal(err)
	}
	if err := client.Listen(); err != nil {
		log.Fatal(err)
	}
}

// handleSession drives one browser's offer/answer exchange against a
// freshly constructed PeerConnection, printing connection and ICE
// connection state transitions and logging every data channel the
// browser opens along with the size of each message it receives.
func handleSession(ss *signaling.Session) {
	ctx, cancel := context.WithCancel(ss.Context)
	defer cancel()

	pc, err := rtcpeer.New(ctx, rtcpeer.Configuration{
		ICEServers: []rtcpeer.ICEServer{
			{URLs: []string{flagSTUNAddress}},
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	defer pc.Close()

	pc.Subscribe(rtcpeer.EventConnectionStateChange, func(v interface{}) {
		log.Printf("connection state: %v", v)
	})
	pc.Subscribe(rtcpeer.EventICEConnectionStateChange, func(v interface{}) {
		log.Printf("ice connection state: %v", v)
	})
	pc.Subscribe(rtcpeer.EventICECandidate, func(v interface{}) {
		c := v.(sdp.Candidate)
		if err := ss.SendLocalCandidate(c.String(), ""); err != nil {
			log.Printf("send local candidate: %v", err)
		}
	})
	pc.Subscribe(rtcpeer.EventDataChannel, func(v interface{}) {
		dc := v.(*rtcpeer.DataChannel)
		log.Printf("incoming data channel: %s", dc.Label())
		dc.OnMessage(func(b []byte) {
			log.Printf("message on %s: %d bytes", dc.Label(), len(b))
		})
	})

	select {
	case offer, ok := <-ss.Offer:
		if !ok {
			log.Fatal("signaling session closed before an offer arrived")
		}
		if err := pc.SetRemoteDescription(rtcpeer.SessionDescription{
			Type: rtcpeer.SDPTypeOffer,
			SDP:  offer,
		}); err != nil {
			log.Fatal(err)
		}
	case <-ctx.Done():
		return
	}

	answer, err := pc.CreateAnswer(rtcpeer.CreateAnswerOptions{})
	if err != nil {
		log.Fatal(err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		log.Fatal(err)
	}
	if err := ss.SendAnswer(answer.SDP); err != nil {
		log.Fatal(err)
	}

	go func() {
		for c := range ss.RemoteCandidates {
			if err := pc.AddIceCandidate(rtcpeer.IceCandidateInit{Candidate: c.Candidate, Mid: c.Mid}); err != nil {
				log.Printf("add remote candidate: %v", err)
			}
		}
	}()

	<-ctx.Done()
}

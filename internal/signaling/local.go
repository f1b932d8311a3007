// Copyright 2019 Lanikai Labs. All rights reserved.

package signaling

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/lanikai/rtcpeer/internal/logging"
)

var (
	// HTTP port on which to listen
	flagPort int

	log = logging.DefaultLogger.WithTag("signaling")
)

func init() {
	flag.IntVar(&flagPort, "p", 8000, "HTTP port on which to listen")
}

// localWebSignaler is a signaling.Client that also acts as the signaling
// server: it runs a local webserver the browser connects to directly,
// and exchanges SDP/ICE messages over a websocket opened from that page.
type localWebSignaler struct {
	handler SessionHandler
	server  *http.Server
}

func newLocalWebSignaler(handler SessionHandler) (Client, error) {
	router := http.NewServeMux()
	s := &localWebSignaler{
		handler: handler,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", flagPort),
			Handler: router,
		},
	}
	router.HandleFunc("/", s.handleIndex)
	router.HandleFunc("/ws", s.handleWebsocket)

	return s, nil
}

func (s *localWebSignaler) Listen() error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	} else if !strings.Contains(hostname, ".") {
		hostname += ".local"
	}

	url := hostname
	if flagPort != 80 {
		url = fmt.Sprintf("%s:%d", hostname, flagPort)
	}

	log.Info("Open http://%s/ in a browser", url)
	return s.server.ListenAndServe()
}

func (s *localWebSignaler) Shutdown() error {
	return s.server.Shutdown(context.Background())
}

func (s *localWebSignaler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *localWebSignaler) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws, err := new(websocket.Upgrader).Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade: %v", err)
		return
	}
	defer ws.Close()

	offerCh := make(chan string)
	rcandCh := make(chan RemoteCandidate)
	session := &Session{
		Context:          ctx,
		Offer:            offerCh,
		RemoteCandidates: rcandCh,
		SendAnswer: func(sdp string) error {
			return ws.WriteJSON(map[string]string{
				"type": "answer",
				"sdp":  sdp,
			})
		},
		SendLocalCandidate: func(candidate, mid string) error {
			return ws.WriteJSON(map[string]string{
				"type":      "iceCandidate",
				"candidate": candidate,
				"sdpMid":    mid,
			})
		},
	}

	go s.handler(session)

	// Process incoming websocket messages. Expected JSON shapes:
	//   { "type": "offer", "sdp": "..." }
	//   { "type": "iceCandidate", "candidate": "...", "sdpMid": "..." }
	for {
		msg := map[string]string{}
		if err := ws.ReadJSON(&msg); err != nil {
			log.Warn("read websocket message: %v", err)
			return
		}

		switch msg["type"] {
		case "offer":
			offerCh <- msg["sdp"]
		case "iceCandidate":
			if _, ok := msg["candidate"]; !ok {
				// A message without a candidate field marks end-of-trickle.
				close(rcandCh)
				continue
			}
			rcandCh <- RemoteCandidate{Candidate: msg["candidate"], Mid: msg["sdpMid"]}
		default:
			log.Warn("unexpected websocket message: %v", msg)
		}
	}
}

// indexHTML is a minimal page that opens a websocket to /ws and drives
// the browser's RTCPeerConnection against it; enough to exercise the
// demo CLI without a build step.
const indexHTML = `<!DOCTYPE html>
<html>
<head><title>rtcpeer demo signaling</title></head>
<body>
<p>Connected device is waiting for an offer over <code>/ws</code>.</p>
<script>
  const ws = new WebSocket("ws://" + location.host + "/ws");
  const pc = new RTCPeerConnection();
  pc.onicecandidate = (e) => {
    if (e.candidate) {
      ws.send(JSON.stringify({type: "iceCandidate", candidate: e.candidate.candidate, sdpMid: e.candidate.sdpMid}));
    } else {
      ws.send(JSON.stringify({type: "iceCandidate"}));
    }
  };
  ws.onopen = async () => {
    const offer = await pc.createOffer();
    await pc.setLocalDescription(offer);
    ws.send(JSON.stringify({type: "offer", sdp: offer.sdp}));
  };
  ws.onmessage = async (e) => {
    const msg = JSON.parse(e.data);
    if (msg.type === "answer") {
      await pc.setRemoteDescription({type: "answer", sdp: msg.sdp});
    }
  };
</script>
</body>
</html>
`

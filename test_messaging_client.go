package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/hackerzhuli/editor-messaging-service/internal/protocol"
)

// Manual test client for the messaging daemon. Sends one message and
// prints every reply that arrives within the wait window.
//
// Examples:
//
//	go run test_messaging_client.go -pid 12345 -kind Ping
//	go run test_messaging_client.go -port 56002 -kind Version
//	go run test_messaging_client.go -pid 12345 -kind ExecuteTests -payload "EditMode:MyFixture"

var kindsByName = map[string]protocol.Kind{
	"Ping":             protocol.KindPing,
	"Play":             protocol.KindPlay,
	"Stop":             protocol.KindStop,
	"Pause":            protocol.KindPause,
	"Unpause":          protocol.KindUnpause,
	"Refresh":          protocol.KindRefresh,
	"Version":          protocol.KindVersion,
	"ProjectPath":      protocol.KindProjectPath,
	"ExecuteTests":     protocol.KindExecuteTests,
	"RetrieveTestList": protocol.KindRetrieveTestList,
	"ShowUsage":        protocol.KindShowUsage,
}

func main() {
	host := flag.String("host", "127.0.0.1", "daemon address")
	port := flag.Int("port", 0, "messaging port (overrides -pid)")
	pid := flag.Int("pid", 0, "daemon process id, used to derive the port")
	kindName := flag.String("kind", "Ping", "message kind to send")
	payload := flag.String("payload", "", "message payload")
	wait := flag.Duration("wait", 2*time.Second, "how long to wait for replies")
	flag.Parse()

	kind, ok := kindsByName[*kindName]
	if !ok {
		names := make([]string, 0, len(kindsByName))
		for name := range kindsByName {
			names = append(names, name)
		}
		log.Fatalf("Unknown kind %q, expected one of: %s", *kindName, strings.Join(names, ", "))
	}

	target := *port
	if target == 0 {
		if *pid == 0 {
			log.Fatal("Either -port or -pid is required")
		}
		target = protocol.MessagingPort(*pid)
	}

	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{
		IP:   net.ParseIP(*host),
		Port: target,
	})
	if err != nil {
		log.Fatalf("Failed to dial daemon: %v", err)
	}
	defer conn.Close()

	data, err := protocol.Encode(kind, *payload)
	if err != nil {
		log.Fatalf("Failed to encode message: %v", err)
	}

	log.Printf("🚀 Sending %s to %s:%d", kind, *host, target)
	if _, err := conn.Write(data); err != nil {
		log.Fatalf("Failed to send message: %v", err)
	}

	deadline := time.Now().Add(*wait)
	buffer := make([]byte, protocol.MaxMessageSize)
	replies := 0

	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			log.Fatalf("Failed to set read deadline: %v", err)
		}

		n, err := conn.Read(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				break
			}
			log.Fatalf("Failed to read reply: %v", err)
		}

		replyKind, replyPayload, err := protocol.Decode(buffer[:n])
		if err != nil {
			log.Printf("⚠️  Undecodable reply (%d bytes): %v", n, err)
			continue
		}

		replies++
		if replyPayload == "" {
			log.Printf("✅ Reply: %s", replyKind)
		} else {
			log.Printf("✅ Reply: %s %q", replyKind, replyPayload)
		}
	}

	if replies == 0 {
		fmt.Println("No replies received. Fire-and-forget kinds do not reply; for others, check the daemon pid/port.")
	}
}

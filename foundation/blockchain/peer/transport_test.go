package peer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// serve starts a transport on a random port and returns its host and the
// channel receiving every message.
func serve(t *testing.T, tr *peer.Transport, reply *peer.Message) (string, chan peer.Message) {
	ln, err := tr.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to listen: %v", failed, err)
	}

	ch := make(chan peer.Message, 10)
	handler := func(ctx context.Context, from string, msg peer.Message) (*peer.Message, error) {
		ch <- msg
		return reply, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.Serve(context.Background(), ln, handler)
	}()

	t.Cleanup(func() {
		ln.Close()
		<-done
	})

	return ln.Addr().String(), ch
}

// deadHost returns an address nobody is listening on.
func deadHost(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to listen: %v", failed, err)
	}
	host := ln.Addr().String()
	ln.Close()

	return host
}

func receive(t *testing.T, ch chan peer.Message) peer.Message {
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatalf("\t%s\tShould receive the message in time.", failed)
	}

	return peer.Message{}
}

// =============================================================================

func Test_Send(t *testing.T) {
	tr := peer.NewTransport(peer.TransportConfig{DialTimeout: time.Second, IOTimeout: 2 * time.Second})

	t.Log("Given the need to send messages to peers.")
	{
		t.Logf("\tTest 0:\tWhen handling a live peer.")
		{
			host, ch := serve(t, tr, nil)

			tx := json.RawMessage(`{"from":"bill","to":"ana"}`)
			if err := tr.Send(context.Background(), host, peer.NewTransactionMessage(tx)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to send the message: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to send the message.", success)

			msg := receive(t, ch)
			if msg.Type != peer.KindTransaction || string(msg.Transaction) != string(tx) {
				t.Fatalf("\t%s\tTest 0:\tShould receive the same transaction: %s %s", failed, msg.Type, msg.Transaction)
			}
			t.Logf("\t%s\tTest 0:\tShould receive the same transaction.", success)
		}

		t.Logf("\tTest 1:\tWhen handling a dead peer.")
		{
			host := deadHost(t)

			err := tr.Send(context.Background(), host, peer.NewPeerMessage("127.0.0.1:1"))

			var se *peer.SendError
			if !errors.As(err, &se) || se.Host != host {
				t.Fatalf("\t%s\tTest 1:\tShould get a send error for the peer: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get a send error for the peer.", success)

			if err := tr.Dial(context.Background(), host); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould not be able to connect.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not be able to connect.", success)
		}
	}
}

func Test_Request(t *testing.T) {
	tr := peer.NewTransport(peer.TransportConfig{})

	t.Log("Given the need to request the chain of a peer.")
	{
		t.Logf("\tTest 0:\tWhen the peer replies.")
		{
			gen := database.NewGenesisBlock(genesis.Default(), nil)
			reply := peer.NewChainMessage([]database.Block{gen})

			host, ch := serve(t, tr, &reply)

			msg, err := tr.Request(context.Background(), host, peer.NewChainMessage(nil))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to request the chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to request the chain.", success)

			if req := receive(t, ch); req.Type != peer.KindChain || len(req.Chain) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould deliver a chain request: %+v", failed, req)
			}
			t.Logf("\t%s\tTest 0:\tShould deliver a chain request.", success)

			if len(msg.Chain) != 1 || msg.Chain[0].Hash != gen.Hash {
				t.Fatalf("\t%s\tTest 0:\tShould get back the chain: %+v", failed, msg)
			}
			t.Logf("\t%s\tTest 0:\tShould get back the chain.", success)
		}
	}
}

func Test_Broadcast(t *testing.T) {
	tr := peer.NewTransport(peer.TransportConfig{DialTimeout: time.Second, IOTimeout: 2 * time.Second})

	t.Log("Given the need to broadcast to many peers.")
	{
		t.Logf("\tTest 0:\tWhen one of the peers is dead.")
		{
			host1, ch1 := serve(t, tr, nil)
			host2, ch2 := serve(t, tr, nil)
			dead := deadHost(t)

			peers := []peer.Peer{peer.New(host1), peer.New(dead), peer.New(host2)}
			err := tr.Broadcast(context.Background(), peers, peer.NewPeerMessage("127.0.0.1:9080"))

			var se *peer.SendError
			if !errors.As(err, &se) || se.Host != dead {
				t.Fatalf("\t%s\tTest 0:\tShould report the dead peer: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould report the dead peer.", success)

			for _, ch := range []chan peer.Message{ch1, ch2} {
				if msg := receive(t, ch); msg.Peer != "127.0.0.1:9080" {
					t.Fatalf("\t%s\tTest 0:\tShould deliver to the live peers: %+v", failed, msg)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould deliver to the live peers.", success)
		}
	}
}

func Test_MalformedInput(t *testing.T) {
	tr := peer.NewTransport(peer.TransportConfig{MaxMessageSize: 64})

	t.Log("Given the need to survive bad input from peers.")
	{
		t.Logf("\tTest 0:\tWhen a peer sends garbage.")
		{
			host, ch := serve(t, tr, nil)

			for _, data := range []string{"not json", `{"type":"gossip"}`, `{"type":"transaction","transaction":"` + string(make([]byte, 100)) + `"}`} {
				conn, err := net.Dial("tcp", host)
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to connect: %v", failed, err)
				}
				conn.Write([]byte(data))
				conn.Close()
			}

			if err := tr.Send(context.Background(), host, peer.NewPeerMessage("127.0.0.1:1")); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould keep accepting connections: %v", failed, err)
			}

			if msg := receive(t, ch); msg.Type != peer.KindPeer {
				t.Fatalf("\t%s\tTest 0:\tShould only dispatch the valid message: %+v", failed, msg)
			}
			t.Logf("\t%s\tTest 0:\tShould only dispatch the valid message.", success)
		}
	}
}

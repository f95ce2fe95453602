package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"dasharena/client"
	"dasharena/protocol"
	"dasharena/sim"
)

func testManager(t *testing.T) (*RoomManager, *httptest.Server) {
	t.Helper()
	cfg, err := sim.DefaultConfig().Normalize()
	if err != nil {
		t.Fatal(err)
	}
	rm := NewRoomManager(cfg, sim.DefaultWorld(), "json")
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", rm.HandleWS)
	mux.HandleFunc("/admin/config", rm.HandleAdminConfig)
	mux.HandleFunc("/metrics", rm.HandleMetrics)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		rm.Close()
	})
	return rm, srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
}

func TestWebsocketJoinInputAndTarget(t *testing.T) {
	for _, name := range []string{"json", "msgpack"} {
		t.Run(name, func(t *testing.T) {
			_, srv := testManager(t)
			codec, _ := protocol.Lookup(name)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			conn, err := client.Dial(ctx, wsURL(srv, "room=ws&player=alice"), codec, nil)
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer conn.Close()
			if w := conn.Welcome(); w.ActorID != "alice" || w.Config.TickRate != sim.DefaultConfig().TickRate {
				t.Fatalf("welcome = %+v", w)
			}

			targets := make(chan sim.StateSnapshot, 16)
			conn.OnTarget(func(s sim.StateSnapshot) {
				select {
				case targets <- s:
				default:
				}
			})
			go conn.Run(ctx)

			if err := conn.SendInput(sim.InputSample{Tick: 7, Movement: mgl64.Vec3{0, 0, 1}}); err != nil {
				t.Fatal(err)
			}
			select {
			case s := <-targets:
				if s.Tick != 7 {
					t.Fatalf("target tick = %d", s.Tick)
				}
			case <-ctx.Done():
				t.Fatalf("no target state received")
			}
		})
	}
}

func TestWebsocketDuplicatePlayerRejected(t *testing.T) {
	_, srv := testManager(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := client.Dial(ctx, wsURL(srv, "player=alice"), protocol.JSONCodec{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	if _, err := client.Dial(ctx, wsURL(srv, "player=alice"), protocol.JSONCodec{}, nil); err == nil {
		t.Fatalf("second connection for the same player was welcomed")
	}
}

func TestWebsocketRequiresPlayer(t *testing.T) {
	_, srv := testManager(t)
	resp, err := http.Get(srv.URL + "/ws?room=x")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/ws?player=alice&codec=xml")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown codec status = %d", resp.StatusCode)
	}
}

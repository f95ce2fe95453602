// dashbot 无界面的预测客户端：按脚本输入移动并冲刺，在本地预测并根据权威快照校正
package main

import (
	"context"
	"flag"
	"math"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dasharena/client"
	"dasharena/protocol"
	"dasharena/sim"
)

const (
	frameRate   = 60
	turnPeriod  = 8 * time.Second // 走完一圈的时间
	dashPeriod  = 3 * time.Second
	statsPeriod = 5 * time.Second
)

func main() {
	var (
		serverURL string
		room      string
		player    string
		codecName string
		duration  time.Duration
		debug     bool
	)
	flag.StringVar(&serverURL, "url", "ws://localhost:8080/ws", "server websocket endpoint")
	flag.StringVar(&room, "room", "room-1", "room to join")
	flag.StringVar(&player, "player", "", "player name; random when empty")
	flag.StringVar(&codecName, "codec", "json", "wire codec: json|msgpack")
	flag.DurationVar(&duration, "duration", 0, "stop after this long; 0 runs until interrupted")
	flag.BoolVar(&debug, "debug", false, "log every correction")
	flag.Parse()

	zcfg := zap.NewDevelopmentConfig()
	if !debug {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if player == "" {
		player = "bot-" + uuid.NewString()[:8]
	}
	codec, err := protocol.Lookup(codecName)
	if err != nil {
		log.Fatalf("codec: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if err := run(ctx, log, joinURL(serverURL, room, player), codec); err != nil {
		log.Fatalf("bot stopped: %v", err)
	}
}

func joinURL(base, room, player string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("room", room)
	q.Set("player", player)
	u.RawQuery = q.Encode()
	return u.String()
}

func run(ctx context.Context, log *zap.SugaredLogger, rawURL string, codec protocol.Codec) error {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	conn, err := client.Dial(dialCtx, rawURL, codec, log)
	cancel()
	if err != nil {
		return err
	}
	welcome := conn.Welcome()
	cfg, err := welcome.Config.Normalize()
	if err != nil {
		conn.Close()
		return err
	}
	log.Infof("joined as %s at %v (server tick %d, %g Hz, codec %s)",
		welcome.ActorID, welcome.Spawn, welcome.ServerTick, cfg.TickRate, codec.Name())

	pred := client.NewPredictor(cfg, sim.DefaultWorld(), welcome.Spawn,
		client.WithLogger(log),
		client.WithSender(func(in sim.InputSample) {
			if err := conn.SendInput(in); err != nil {
				log.Debugf("send input %d: %v", in.Tick, err)
			}
		}),
		client.WithStateListener(func(from, to sim.MovementState) {
			log.Debugf("state %s -> %s", from, to)
		}),
	)

	// 重生在帧循环中处理，预测器只在帧循环协程中使用
	respawns := make(chan mgl64.Vec3, 1)
	conn.OnTarget(pred.OnTargetState)
	conn.OnEvent(func(e protocol.Event) {
		switch e.Kind {
		case protocol.EventRespawn:
			if e.Actor != welcome.ActorID {
				return
			}
			select {
			case respawns <- e.Position:
			default:
			}
		case protocol.EventHit:
			log.Infof("%s hit %s (%d)", e.Actor, e.Other, e.Value)
		case protocol.EventWin:
			log.Infof("round over: %s", e.Text)
		case protocol.EventCountdown:
			log.Infof("restart in %ds", e.Value)
		case protocol.EventLeave:
			log.Infof("%s left", e.Actor)
		}
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return conn.Run(ctx) })
	g.Go(func() error {
		defer conn.Close()
		frames(ctx, log, pred, conn, respawns)
		return nil
	})
	err = g.Wait()

	st := pred.Stats()
	log.Infof("done: ticks=%d corrections=%d accepted=%d skipped=%d duplicates=%d",
		pred.Tick(), st.Corrections, st.Accepted, st.Skipped, st.Duplicates)
	return err
}

// frames 以固定帧率采样脚本输入并推进预测
func frames(ctx context.Context, log *zap.SugaredLogger, pred *client.Predictor, conn *client.Conn, respawns <-chan mgl64.Vec3) {
	ticker := time.NewTicker(time.Second / frameRate)
	defer ticker.Stop()
	stats := time.NewTicker(statsPeriod)
	defer stats.Stop()

	start := time.Now()
	last := start
	nextDash := start.Add(dashPeriod)
	for {
		select {
		case <-ctx.Done():
			return
		case spawn := <-respawns:
			pred.Reset(spawn)
			log.Infof("respawned at %v", spawn)
		case <-stats.C:
			st := pred.Stats()
			log.Infof("tick=%d pos=%v state=%s corrections=%d observers=%d",
				pred.Tick(), pred.Position(), pred.State(), st.Corrections, len(conn.Observers()))
		case now := <-ticker.C:
			phase := 2 * math.Pi * now.Sub(start).Seconds() / turnPeriod.Seconds()
			dash := now.After(nextDash)
			if dash {
				nextDash = now.Add(dashPeriod)
			}
			pred.Sample(math.Sin(phase), math.Cos(phase), dash, 0)
			pred.Update(now.Sub(last))
			last = now
		}
	}
}

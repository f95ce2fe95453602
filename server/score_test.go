package server

import "testing"

func TestScoreboardInvincibility(t *testing.T) {
	s := NewScoreboard(50)
	if hits, won := s.Hit("a", "b", 10); hits != 1 || won {
		t.Fatalf("hits=%d won=%v", hits, won)
	}
	if s.CanBeHit("b", 159) {
		t.Fatalf("b should still be invincible at tick 159")
	}
	if !s.CanBeHit("b", 160) || !s.CanBeHit("a", 10) {
		t.Fatalf("invincibility lasted too long or applied to the hitter")
	}
}

func TestScoreboardWinCountdownRestart(t *testing.T) {
	s := NewScoreboard(50)
	for i := 1; i < WinningHits; i++ {
		if _, won := s.Hit("a", "b", 0); won {
			t.Fatalf("won after %d hits", i)
		}
	}
	if hits, won := s.Hit("a", "c", 0); !won || hits != WinningHits {
		t.Fatalf("hits=%d won=%v", hits, won)
	}
	if s.CanBeHit("d", 1) {
		t.Fatalf("hits must be ignored once the round is over")
	}

	var announced []int
	for tick := uint64(1); tick < 250; tick++ {
		left, announce, restart := s.Update(tick)
		if restart {
			t.Fatalf("restarted early at tick %d", tick)
		}
		if announce {
			announced = append(announced, left)
		}
	}
	want := []int{5, 4, 3, 2, 1}
	if len(announced) != len(want) {
		t.Fatalf("countdown = %v", announced)
	}
	for i := range want {
		if announced[i] != want[i] {
			t.Fatalf("countdown = %v", announced)
		}
	}

	if _, _, restart := s.Update(250); !restart {
		t.Fatalf("no restart at tick 250")
	}
	if s.Over() || s.Hits("a") != 0 {
		t.Fatalf("scores survived restart")
	}
}

func TestScoreboardFractionalTickRate(t *testing.T) {
	// 60.5 Hz 下 3 秒为 181.5 个 Tick，5 秒为 302.5 个 Tick，均向上取整
	s := NewScoreboard(60.5)
	s.Hit("a", "b", 0)
	if s.CanBeHit("b", 181) || !s.CanBeHit("b", 182) {
		t.Fatalf("invincibility window truncated")
	}

	s.Hit("a", "c", 0)
	s.Hit("a", "d", 0)
	if !s.Over() {
		t.Fatalf("round should be over")
	}
	var announced []int
	for tick := uint64(1); tick < 303; tick++ {
		left, announce, restart := s.Update(tick)
		if restart {
			t.Fatalf("restarted early at tick %d", tick)
		}
		if announce {
			announced = append(announced, left)
		}
	}
	if len(announced) != 5 || announced[0] != 5 || announced[4] != 1 {
		t.Fatalf("countdown = %v", announced)
	}
	if _, _, restart := s.Update(303); !restart {
		t.Fatalf("no restart at tick 303")
	}
}

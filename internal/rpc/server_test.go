package rpc

import (
	"context"
	"net"
	"strings"
	"testing"

	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/ppiankov/drivewatch/internal/config"
	"github.com/ppiankov/drivewatch/internal/cooldown"
	"github.com/ppiankov/drivewatch/internal/model"
	"github.com/ppiankov/drivewatch/internal/session"
)

// The genai dependency chain starts an opencensus worker in init.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// testServer runs the Arbiter in-process over bufconn and returns a client.
func testServer(t *testing.T) (*Client, *Server) {
	t.Helper()

	srv := New(session.New(session.Options{}), nil)
	lis := bufconn.Listen(1 << 20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.ServeOn(lis)
	}()

	client, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	if err != nil {
		srv.GracefulStop()
		t.Fatalf("dial: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
		srv.GracefulStop()
		<-done
	})
	return client, srv
}

func TestParse(t *testing.T) {
	client, _ := testServer(t)

	resp, err := client.Parse(context.Background(),
		`ok [{"name":"trigger_voice_prompt","arguments":{"message":"hi"}}] done`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if resp.Strategy != "bracket_array" {
		t.Errorf("strategy = %q", resp.Strategy)
	}
	if len(resp.Actions) != 1 || resp.Actions[0].Name != model.ActVoicePrompt {
		t.Errorf("actions = %+v", resp.Actions)
	}
	if resp.Error != "" {
		t.Errorf("unexpected error %q", resp.Error)
	}
}

func TestParseReportsFailureKind(t *testing.T) {
	client, _ := testServer(t)

	resp, err := client.Parse(context.Background(), "no calls here")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if resp.Error != "extraction_failed" || len(resp.Actions) != 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestEvaluateGate(t *testing.T) {
	client, _ := testServer(t)

	cx := model.DefaultContext().WithDrowsy(true).WithDrowsinessConfidence(0.85).WithHandsOn(false)
	res, err := client.EvaluateGate(context.Background(), &cx)
	if err != nil {
		t.Fatalf("EvaluateGate: %v", err)
	}
	if res.Event != model.EventDrowsyNoHands || !res.Triggered {
		t.Errorf("gate = %+v", res)
	}

	res, err = client.EvaluateGate(context.Background(), nil)
	if err != nil {
		t.Fatalf("EvaluateGate(session): %v", err)
	}
	if res.Triggered {
		t.Errorf("default session context triggered: %+v", res)
	}
}

func TestEvaluateGateClampsContext(t *testing.T) {
	client, _ := testServer(t)

	cx := model.DefaultContext()
	cx.LaneDeparture = model.LaneDeparture{Departed: true, Confidence: 1.5}
	cx.SpeedKph = 500
	res, err := client.EvaluateGate(context.Background(), &cx)
	if err != nil {
		t.Fatalf("EvaluateGate: %v", err)
	}
	if res.Event != model.EventLaneDepartureHighSpeed {
		t.Fatalf("gate = %+v", res)
	}
	if !strings.Contains(res.Reason, "speed(240kph)") {
		t.Errorf("expected clamped speed in reason, got %q", res.Reason)
	}
}

func TestFilterKeepsCooldownAcrossCalls(t *testing.T) {
	client, _ := testServer(t)
	batch := model.ActionSequence{model.NewAction(model.ActSteeringVibration, "intensity", "high")}

	first, err := client.Filter(context.Background(), batch)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(first.Executed) != 1 {
		t.Fatalf("first = %+v", first)
	}

	second, err := client.Filter(context.Background(), batch)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(second.Blocked) != 1 || len(second.Logs) != 1 {
		t.Errorf("second = %+v", second)
	}

	if err := client.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	third, _ := client.Filter(context.Background(), batch)
	if len(third.Executed) != 1 {
		t.Errorf("after reset = %+v", third)
	}
}

func TestApply(t *testing.T) {
	client, _ := testServer(t)

	st, err := client.Apply(context.Background(), model.ActionSequence{
		model.NewAction(model.ActEscalateWarningLevel, "level", "Critical"),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if st.WarningLevel != model.Critical {
		t.Errorf("warning level = %v", st.WarningLevel)
	}
	if len(st.Events) != 1 || st.Events[0].Message != "warning_level=critical" {
		t.Errorf("events = %+v", st.Events)
	}
}

func TestRunWithScenarioAndPrompt(t *testing.T) {
	client, _ := testServer(t)

	prompt := "I feel sleepy"
	snap, err := client.Run(context.Background(), RunRequest{Scenario: "1", Prompt: &prompt})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if snap.Event != model.EventManualTrigger || snap.RunID == "" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Prompt != prompt {
		t.Errorf("prompt = %q", snap.Prompt)
	}
	if snap.Vehicle.WarningLevel != model.Critical {
		t.Errorf("drowsy prompt should escalate, got %v", snap.Vehicle.WarningLevel)
	}
}

func TestSelectScenario(t *testing.T) {
	client, _ := testServer(t)

	resp, err := client.SelectScenario(context.Background(), "9")
	if err != nil {
		t.Fatalf("SelectScenario: %v", err)
	}
	if resp.Title != "Forward collision (sensor)" || resp.Gate.Event != model.EventForwardCollisionHigh {
		t.Errorf("resp = %+v", resp)
	}

	_, err = client.SelectScenario(context.Background(), "nope")
	if !IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestReconfigure(t *testing.T) {
	client, srv := testServer(t)
	batch := model.ActionSequence{model.NewAction(model.ActHUDWarning)}

	cfg := config.NewDefaultConfig()
	cfg.Safety = cooldown.Config{Exempt: []string{model.ActHUDWarning}}
	srv.Reconfigure(cfg)

	for i := 0; i < 2; i++ {
		res, err := client.Filter(context.Background(), batch)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Blocked) != 0 {
			t.Fatalf("exempt action blocked on call %d", i)
		}
	}
}

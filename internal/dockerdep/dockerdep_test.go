package dockerdep

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeRunner records invocations and answers from a script keyed by the
// joined command line.
type fakeRunner struct {
	calls   []string
	outputs map[string]string // command line -> stdout; missing key = error
}

func (f *fakeRunner) run(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, line)
	out, ok := f.outputs[line]
	if !ok {
		return nil, errors.New("exit status 1")
	}
	return []byte(out), nil
}

func newFakeClient(outputs map[string]string) (*Client, *fakeRunner) {
	fr := &fakeRunner{outputs: outputs}
	return &Client{bin: "docker", run: fr.run}, fr
}

func TestDaemonRunning(t *testing.T) {
	c, _ := newFakeClient(map[string]string{"docker info": ""})
	if !c.DaemonRunning(context.Background()) {
		t.Fatalf("expected daemon running")
	}
	c, _ = newFakeClient(nil)
	if c.DaemonRunning(context.Background()) {
		t.Fatalf("expected daemon down")
	}
}

func TestCheckTriesCandidatesInOrder(t *testing.T) {
	dep := Dependency{
		Name:        "mongodb",
		Containers:  []string{"stack-mongodb", "stack-mongodb-1", "mongodb"},
		PingCommand: "mongo --eval db.runCommand({ping:1})",
		Timeout:     time.Second,
	}
	// Only the second candidate answers.
	c, fr := newFakeClient(map[string]string{
		"docker exec stack-mongodb-1 mongo --eval db.runCommand({ping:1})": "ok",
	})
	st := c.Check(context.Background(), dep)
	if !st.Reachable {
		t.Fatalf("expected reachable via fallback candidate, got %+v", st)
	}
	if len(fr.calls) != 2 {
		t.Fatalf("expected to stop after first success, calls: %v", fr.calls)
	}
	if !strings.Contains(fr.calls[0], "stack-mongodb mongo") {
		t.Fatalf("candidates not tried in priority order: %v", fr.calls)
	}
}

func TestCheckExpectSubstring(t *testing.T) {
	dep := Dependency{
		Name:        "redis",
		Containers:  []string{"stack-redis"},
		PingCommand: "redis-cli ping",
		Expect:      "PONG",
		Timeout:     time.Second,
	}
	c, _ := newFakeClient(map[string]string{
		"docker exec stack-redis redis-cli ping": "NOAUTH Authentication required",
	})
	if st := c.Check(context.Background(), dep); st.Reachable {
		t.Fatalf("expected unreachable when expect substring missing")
	}
	c, _ = newFakeClient(map[string]string{
		"docker exec stack-redis redis-cli ping": "PONG",
	})
	if st := c.Check(context.Background(), dep); !st.Reachable {
		t.Fatalf("expected reachable on PONG")
	}
}

func TestPingArgsPasswordPlaceholder(t *testing.T) {
	t.Setenv("SENTINEL_TEST_REDIS_PASSWORD", "s3cret")
	dep := Dependency{
		PingCommand: "redis-cli -a {password} ping",
		PasswordEnv: "SENTINEL_TEST_REDIS_PASSWORD",
	}
	args := dep.pingArgs()
	want := []string{"redis-cli", "-a", "s3cret", "ping"}
	if len(args) != len(want) {
		t.Fatalf("args = %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestUnreachable(t *testing.T) {
	statuses := []Status{
		{Name: "mongodb", Reachable: true},
		{Name: "redis", Reachable: false},
	}
	names := Unreachable(statuses)
	if len(names) != 1 || names[0] != "redis" {
		t.Fatalf("Unreachable = %v", names)
	}
}

func TestComposeUpCommandLine(t *testing.T) {
	c, fr := newFakeClient(map[string]string{
		"docker compose -f docker-compose.yml up -d mongodb redis": "",
	})
	cp := NewCompose(c, "docker-compose.yml", "/srv/app", 10*time.Millisecond)
	if err := cp.Up(context.Background(), []string{"mongodb", "redis"}); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if len(fr.calls) != 1 {
		t.Fatalf("calls: %v", fr.calls)
	}
}

func TestComposeUpNoServicesIsNoop(t *testing.T) {
	c, fr := newFakeClient(nil)
	cp := NewCompose(c, "", "", time.Millisecond)
	if err := cp.Up(context.Background(), nil); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if len(fr.calls) != 0 {
		t.Fatalf("expected no runtime invocation, got %v", fr.calls)
	}
}

func TestComposeUpSurfacesFailure(t *testing.T) {
	c, _ := newFakeClient(nil)
	cp := NewCompose(c, "", "", time.Millisecond)
	if err := cp.Up(context.Background(), []string{"mongodb"}); err == nil {
		t.Fatalf("expected error when compose up fails")
	}
}

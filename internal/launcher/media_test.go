package launcher

import (
	"context"
	"testing"
)

func TestSelectMedia(t *testing.T) {
	files := []string{"/s/readme.txt", "/s/cover.JPG", "/s/episode.MKV", "/s/extra.mp4"}

	if got := SelectMedia(files, nil, false); len(got) != 1 || got[0] != "/s/episode.MKV" {
		t.Fatalf("default selection = %v", got)
	}
	if got := SelectMedia(files, []string{".jpg"}, false); len(got) != 1 || got[0] != "/s/cover.JPG" {
		t.Fatalf("custom selection = %v", got)
	}
	if got := SelectMedia(files, nil, true); len(got) != len(files) {
		t.Fatalf("open all = %v", got)
	}
	if got := SelectMedia([]string{"/s/readme.txt"}, nil, false); got != nil {
		t.Fatalf("expected no selection, got %v", got)
	}
}

func TestPasswordSources(t *testing.T) {
	ctx := context.Background()
	t.Setenv("MEDIAPACK_TEST_PASSWORD", "from-env")

	if pw, ok, _ := Static("").Password(ctx); ok || pw != "" {
		t.Fatal("empty static password must not be offered")
	}
	if pw, ok, _ := Env("MEDIAPACK_TEST_PASSWORD").Password(ctx); !ok || pw != "from-env" {
		t.Fatalf("env password = %q, %v", pw, ok)
	}
	if _, ok, _ := Env("MEDIAPACK_TEST_MISSING").Password(ctx); ok {
		t.Fatal("missing env var must not be offered")
	}

	chain := Chain{nil, Static(""), Env("MEDIAPACK_TEST_PASSWORD"), Static("later")}
	if pw, ok, err := chain.Password(ctx); err != nil || !ok || pw != "from-env" {
		t.Fatalf("chain password = %q, %v, %v", pw, ok, err)
	}
	if _, ok, _ := (Terminal{}).Password(ctx); ok {
		t.Fatal("terminal without input must not be offered")
	}
}

func TestCommandOpenerRequiresArgv(t *testing.T) {
	if _, err := (CommandOpener{}).Open(context.Background(), []string{"/tmp/x.mp4"}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

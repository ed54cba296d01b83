package logging

import "testing"

func TestNew(t *testing.T) {
	for _, env := range []string{"", "development", "production"} {
		t.Run(env, func(t *testing.T) {
			l, err := New(env)
			if err != nil {
				t.Fatalf("New(%q): %v", env, err)
			}
			if l == nil {
				t.Fatal("New returned nil logger")
			}
			_ = l.Sync()
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l, _ := New("development")
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger")
	}
}

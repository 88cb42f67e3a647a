package util_test

import (
	"errors"
	"testing"
	"time"

	"github.com/nasa-jpl/katcp/util"
)

func TestUniqueString(t *testing.T) {
	inp := []string{"a", "b", "c", "a"}
	expected := []string{"a", "b", "c"}
	output := util.UniqueString(inp)
	if len(output) != len(expected) {
		t.Fatalf("expected %v got %v", expected, output)
	}
	for i := 0; i < len(output); i++ {
		if output[i] != expected[i] {
			t.Errorf("expected %s got %s", expected[i], output[i])
		}
	}
}

func TestMergeErrorsNilOnEmpty(t *testing.T) {
	if err := util.MergeErrors(nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := util.MergeErrors([]error{nil, nil}); err != nil {
		t.Errorf("expected nil for all-nil input, got %v", err)
	}
}

func TestMergeErrorsJoinsMessages(t *testing.T) {
	err := util.MergeErrors([]error{errors.New("one"), nil, errors.New("two")})
	if err == nil {
		t.Fatal("expected a merged error")
	}
	want := "one\ntwo"
	if err.Error() != want {
		t.Errorf("expected %q got %q", want, err.Error())
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}

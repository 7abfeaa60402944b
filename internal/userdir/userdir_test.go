package userdir

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakePeople struct {
	people []string
	err    error
}

func (f fakePeople) People(context.Context) ([]string, error) { return f.people, f.err }

func TestKnownUsers_MergesInOrder(t *testing.T) {
	d := New([]string{"zoe", "alice"}, fakePeople{people: []string{"alice", "bob"}}, nil)
	got := d.KnownUsers(context.Background())
	if want := []string{"zoe", "alice", "bob"}; !reflect.DeepEqual(got, want) {
		t.Errorf("KnownUsers = %v, want %v", got, want)
	}
}

func TestKnownUsers_LookupFailureKeepsConfigured(t *testing.T) {
	d := New([]string{"alice"}, fakePeople{err: errors.New("db down")}, nil)
	got := d.KnownUsers(context.Background())
	if want := []string{"alice"}; !reflect.DeepEqual(got, want) {
		t.Errorf("KnownUsers = %v, want %v", got, want)
	}
}

func TestKnownUsers_NilSource(t *testing.T) {
	got := New(nil, nil, nil).KnownUsers(context.Background())
	if len(got) != 0 {
		t.Errorf("KnownUsers = %v, want empty", got)
	}
}

package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestSchedulerRunsJob(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := New(log)

	ran := make(chan struct{}, 1)
	if err := s.Every("tick", time.Second, func(context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := New(logrus.New())
	if err := s.Add("bad", "every now and then", func(context.Context) {}); err == nil {
		t.Error("Add() accepted an invalid spec")
	}
}

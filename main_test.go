package main

import (
	"testing"
	"time"
)

func TestWriteTimeout(t *testing.T) {
	cases := []struct {
		request time.Duration
		want    time.Duration
	}{
		{10 * time.Second, 15 * time.Second},
		{0, 0},
		{-time.Second, 0},
	}
	for _, tc := range cases {
		if got := writeTimeout(tc.request); got != tc.want {
			t.Fatalf("writeTimeout(%s)=%s, want %s", tc.request, got, tc.want)
		}
	}
}

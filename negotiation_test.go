// Copyright (c) 2019 Lanikai Labs. All rights reserved.

package rtcpeer

import (
	"reflect"
	"testing"

	"github.com/lanikai/rtcpeer/internal/sdp"
)

func TestIntersectFormats(t *testing.T) {
	cases := []struct {
		name          string
		local, remote []string
		want          []string
	}{
		{"overlap", []string{"96", "97", "0"}, []string{"0", "96"}, []string{"96", "0"}},
		{"no overlap falls back to remote", []string{"96"}, []string{"0"}, []string{"0"}},
		{"identical", []string{"0"}, []string{"0"}, []string{"0"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := intersectFormats(c.local, c.remote); !reflect.DeepEqual(got, c.want) {
				t.Errorf("intersectFormats(%v, %v) = %v, want %v", c.local, c.remote, got, c.want)
			}
		})
	}
}

func TestHasApplicationSection(t *testing.T) {
	withApp := &sdp.Session{Media: []sdp.Media{{Type: "audio"}, {Type: "application"}}}
	withoutApp := &sdp.Session{Media: []sdp.Media{{Type: "audio"}, {Type: "video"}}}

	if !hasApplicationSection(withApp) {
		t.Error("expected application section to be detected")
	}
	if hasApplicationSection(withoutApp) {
		t.Error("did not expect an application section")
	}
}

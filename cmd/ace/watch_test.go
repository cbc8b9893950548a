package main

import (
	"testing"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

func TestWatchFilter_Match(t *testing.T) {
	e := &model.Event{EventType: "script.generate.start", AgentName: "scriptwriter", WorkflowID: "wf-1"}

	for _, tc := range []struct {
		name string
		f    watchFilter
		want bool
	}{
		{"Empty", watchFilter{}, true},
		{"Agent", watchFilter{agent: "scriptwriter"}, true},
		{"OtherAgent", watchFilter{agent: "editor"}, false},
		{"TypePrefix", watchFilter{typePrefix: "script."}, true},
		{"OtherType", watchFilter{typePrefix: "workflow."}, false},
		{"Workflow", watchFilter{workflow: "wf-1"}, true},
		{"AllMustMatch", watchFilter{agent: "scriptwriter", workflow: "wf-2"}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.f.match(e); got != tc.want {
				t.Errorf("match = %v, want %v", got, tc.want)
			}
		})
	}
}

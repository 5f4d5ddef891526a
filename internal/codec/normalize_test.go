package codec

import (
	"reflect"
	"testing"

	"github.com/misnaej/the-jam-machine/internal/event"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input []event.Event
		want  []event.Event
	}{
		{
			name:  "empty input",
			input: nil,
			want:  []event.Event{},
		},
		{
			name:  "velocity dropped from note on",
			input: []event.Event{event.Note(60, 99)},
			want:  []event.Event{{Kind: event.NoteOn, Value: 60}},
		},
		{
			name:  "gap split into units",
			input: []event.Event{event.Rest(3)},
			want:  []event.Event{event.Rest(1), event.Rest(1), event.Rest(1)},
		},
		{
			name:  "zero gap dropped",
			input: []event.Event{event.Note(60, 80), event.Rest(0), event.NoteEnd(60)},
			want: []event.Event{
				{Kind: event.NoteOn, Value: 60},
				{Kind: event.NoteOff, Value: 60},
			},
		},
		{
			name: "mixed stream",
			input: []event.Event{
				event.Note(64, 110),
				event.Rest(2),
				event.NoteEnd(64),
			},
			want: []event.Event{
				{Kind: event.NoteOn, Value: 64},
				event.Rest(1),
				event.Rest(1),
				{Kind: event.NoteOff, Value: 64},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

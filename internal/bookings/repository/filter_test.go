package repository

import (
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"lendly/pkg/model"
)

func TestApplyStateFilter(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		state model.BookingState
		want  bson.M
	}{
		{
			state: model.StateAll,
			want:  bson.M{"booker_id": "u1"},
		},
		{
			state: model.StateCurrent,
			want: bson.M{
				"booker_id":  "u1",
				"start_time": bson.M{"$lte": now},
				"end_time":   bson.M{"$gt": now},
			},
		},
		{
			state: model.StatePast,
			want: bson.M{
				"booker_id": "u1",
				"end_time":  bson.M{"$lt": now},
			},
		},
		{
			state: model.StateFuture,
			want: bson.M{
				"booker_id":  "u1",
				"start_time": bson.M{"$gt": now},
			},
		},
		{
			state: model.StateWaiting,
			want: bson.M{
				"booker_id": "u1",
				"status":    model.StatusWaiting,
			},
		},
		{
			state: model.StateRejected,
			want: bson.M{
				"booker_id": "u1",
				"status":    model.StatusRejected,
			},
		},
	}

	for _, tc := range cases {
		filter := bson.M{"booker_id": "u1"}
		applyStateFilter(filter, tc.state, now)
		if !reflect.DeepEqual(filter, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.state, filter, tc.want)
		}
	}
}

func TestApplyStateFilterAllAddsNothing(t *testing.T) {
	filter := bson.M{"owner_id": "u2"}
	applyStateFilter(filter, model.StateAll, time.Now())
	if len(filter) != 1 {
		t.Errorf("ALL must leave the base filter untouched, got %v", filter)
	}
}

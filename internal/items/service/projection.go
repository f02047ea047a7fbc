package service

import (
	"time"

	"lendly/pkg/model"
)

// annotate builds the owner's read model for a page of items in a single
// pass: for every item, the latest booking started before now and the
// earliest booking starting after now, plus its comments. Bookings are
// expected to be pre-filtered to non-rejected ones.
func annotate(items []model.Item, bookings []model.Booking, comments []model.Comment, now time.Time) []model.ItemView {
	type slots struct {
		last *model.Booking
		next *model.Booking
	}

	byItem := make(map[string]*slots, len(items))
	for i := range items {
		byItem[items[i].ID] = &slots{}
	}

	for i := range bookings {
		b := &bookings[i]
		s, ok := byItem[b.ItemID]
		if !ok {
			continue
		}
		switch {
		case b.StartTime.Before(now):
			if s.last == nil || b.StartTime.After(s.last.StartTime) {
				s.last = b
			}
		case b.StartTime.After(now):
			if s.next == nil || b.StartTime.Before(s.next.StartTime) {
				s.next = b
			}
		}
	}

	commentsByItem := make(map[string][]model.Comment)
	for _, c := range comments {
		commentsByItem[c.ItemID] = append(commentsByItem[c.ItemID], c)
	}

	views := make([]model.ItemView, 0, len(items))
	for _, item := range items {
		s := byItem[item.ID]
		itemComments := commentsByItem[item.ID]
		if itemComments == nil {
			itemComments = []model.Comment{}
		}
		views = append(views, model.ItemView{
			Item:        item,
			LastBooking: model.SlotOf(s.last),
			NextBooking: model.SlotOf(s.next),
			Comments:    itemComments,
		})
	}
	return views
}

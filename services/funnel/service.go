package funnel

import (
	"context"
	"fmt"
	"sort"

	"github.com/MarcGrol/flowershop/lib/myerrors"
	"github.com/MarcGrol/flowershop/lib/mylog"
	"github.com/MarcGrol/flowershop/lib/mypubsub"
	"github.com/MarcGrol/flowershop/lib/mystore"
	"github.com/MarcGrol/flowershop/lib/mytime"
)

type service struct {
	funnelStore mystore.Store[DailyFunnel]
	pubsub      mypubsub.PubSub
	nower       mytime.Nower
	logger      mylog.Logger
	// pushURL is where pubsub delivers checkout events
	pushURL string
}

func newService(store mystore.Store[DailyFunnel], pubsub mypubsub.PubSub, nower mytime.Nower, logger mylog.Logger, baseURL string) *service {
	return &service{
		funnelStore: store,
		pubsub:      pubsub,
		nower:       nower,
		logger:      logger,
		pushURL:     baseURL + "/api/funnel/event",
	}
}

func (s *service) listDays(c context.Context) ([]DailyFunnelView, error) {
	funnels, err := s.funnelStore.List(c)
	if err != nil {
		return nil, myerrors.NewInternalError(err)
	}

	sort.Slice(funnels, func(i, j int) bool {
		return funnels[i].Day > funnels[j].Day
	})

	views := []DailyFunnelView{}
	for _, f := range funnels {
		views = append(views, newView(f))
	}
	return views, nil
}

func (s *service) getDay(c context.Context, day string) (DailyFunnelView, error) {
	f, found, err := s.funnelStore.Get(c, day)
	if err != nil {
		return DailyFunnelView{}, myerrors.NewInternalError(err)
	}
	if !found {
		return DailyFunnelView{}, myerrors.NewNotFoundError(fmt.Errorf("no checkout activity on %s", day))
	}
	return newView(f), nil
}

// count applies one event to the funnel of its day, a redelivered event is ignored
func (s *service) count(c context.Context, day string, eventKey string, apply func(f *DailyFunnel)) error {
	now := s.nower.Now()

	return s.funnelStore.RunInTransaction(c, func(c context.Context) error {
		f, found, err := s.funnelStore.Get(c, day)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			f = DailyFunnel{Day: day}
		}

		if f.isProcessed(eventKey) {
			s.logger.Log(c, "", mylog.SeverityInfo, "Event %s already counted", eventKey)
			return nil
		}

		apply(&f)
		f.Processed = append(f.Processed, eventKey)
		f.LastModified = &now

		err = s.funnelStore.Put(c, day, f)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		return nil
	})
}

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/robolab-sim/engine/internal/channel"
	"github.com/robolab-sim/engine/internal/dispatcher"
	"github.com/robolab-sim/engine/internal/session"
	"github.com/robolab-sim/engine/pkg/core"
)

// notice is an engine event worth showing on the console.
type notice struct {
	event   string
	payload any
}

// teePublisher forwards every event to the dispatcher and copies the ones
// a user watches onto a channel. The copy never blocks the tick loop; a
// full channel drops the notice.
type teePublisher struct {
	next    session.Publisher
	notices channel.Sender[notice]
}

func (p *teePublisher) Publish(event string, payload any) error {
	switch event {
	case dispatcher.EventObjectiveCompleted,
		dispatcher.EventChallengeCompleted,
		dispatcher.EventCollision,
		dispatcher.EventSequenceStep:
		p.notices.TrySend(notice{event: event, payload: payload})
	}
	return p.next.Publish(event, payload)
}

// printNotices writes notices until ctx ends, then flushes what is queued.
func printNotices(ctx context.Context, notices channel.Receiver[notice], w io.Writer) {
	for {
		select {
		case n := <-notices.Receive():
			printNotice(w, n)
		case <-ctx.Done():
			for notices.Len() > 0 {
				printNotice(w, <-notices.Receive())
			}
			return
		}
	}
}

func printNotice(w io.Writer, n notice) {
	if line := formatNotice(n); line != "" {
		fmt.Fprintln(w, line)
	}
}

func formatNotice(n notice) string {
	switch p := n.payload.(type) {
	case core.ObjectiveCompleted:
		return fmt.Sprintf("[tick %6d] objective %q completed", p.Tick, p.ObjectiveID)
	case core.ChallengeCompleted:
		return fmt.Sprintf("[tick %6d] challenge %q completed", p.Tick, p.ChallengeID)
	case core.CollisionEvent:
		return fmt.Sprintf("[tick %6d] collision at (%.2f, %.2f)", p.Tick, p.Position.X, p.Position.Z)
	case core.SequenceStep:
		line := fmt.Sprintf("step %d/%d %s", p.Index+1, p.Total, p.Action)
		if p.Err != "" {
			line += " skipped: " + p.Err
		}
		return line
	}
	return ""
}

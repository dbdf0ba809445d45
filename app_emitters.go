package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"fiddlegg/internal/api"
	"fiddlegg/internal/bridge"
	"fiddlegg/internal/hydrate"
	"fiddlegg/internal/matches"
)

func (a *App) emit(topic string, data any) {
	if a.emitter != nil {
		a.emitter.Emit(topic, data)
	}
}

// emitToast sends the user-facing message for a backend error
func (a *App) emitToast(err error) {
	a.emit(bridge.TopicToast, bridge.Toast{
		Message: api.UserMessage(err),
		Status:  api.StatusCode(err),
	})
}

func (a *App) emitSummoner(update *bridge.SummonerUpdate) {
	a.emit(bridge.TopicSummoner, update)
}

// onMatchesChange pushes every committed page and reset
func (a *App) onMatchesChange(snap matches.Snapshot) {
	a.emit(bridge.TopicMatches, a.matchesView(context.Background(), snap))
}

// onAssetChange pushes asset slot transitions
func (a *App) onAssetChange(slot hydrate.Slot) {
	a.emit(bridge.TopicAsset, slot)
}

// logEmitter is the Emitter used outside of serve mode
type logEmitter struct {
	log logrus.FieldLogger
}

func (e logEmitter) Emit(topic string, data any) {
	if topic == bridge.TopicToast {
		if t, ok := data.(bridge.Toast); ok {
			e.log.WithField("status", t.Status).Error(t.Message)
			return
		}
	}
	e.log.WithField("topic", topic).Debug("Event")
}

package reconciler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eagraf/habitat-workspaces/internal/constants"
	"github.com/eagraf/habitat-workspaces/internal/observability"
	"github.com/rs/zerolog/log"
)

// SNSRoute is the webhook SNS delivers ECS task state changes to.
type SNSRoute struct {
	reconciler *Reconciler
}

func NewSNSRoute(reconciler *Reconciler) *SNSRoute {
	return &SNSRoute{
		reconciler: reconciler,
	}
}

func (h *SNSRoute) Pattern() string {
	return "/notifications/sns"
}

func (h *SNSRoute) Method() string {
	return http.MethodPost
}

func (h *SNSRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kind := r.Header.Get(constants.SNSMessageTypeHeader)
	if kind != constants.SNSSubscriptionConfirmation && kind != constants.SNSNotification {
		observability.NotificationsTotal.WithLabelValues("other", "ignored").Inc()
		w.WriteHeader(http.StatusOK)
		return
	}
	result := "ok"
	defer func() {
		observability.NotificationsTotal.WithLabelValues(kind, result).Inc()
	}()

	var msg snsMessage
	err := json.NewDecoder(r.Body).Decode(&msg)
	if err != nil {
		log.Error().Err(err).Msg("Malformed SNS message")
		result = "malformed"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch kind {
	case constants.SNSSubscriptionConfirmation:
		err = h.reconciler.ConfirmSubscription(r.Context(), msg.SubscribeURL)
		if errors.Is(err, ErrMalformedNotification) {
			result = "malformed"
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		} else if err != nil {
			log.Error().Err(err).Msg("SNS subscription confirmation failed")
			result = "failed"
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
	case constants.SNSNotification:
		ev, err := parseTaskStateChange(msg.Message)
		if err != nil {
			log.Error().Err(err).Str("message_id", msg.MessageID).Msg("Malformed SNS notification")
			result = "malformed"
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = h.reconciler.HandleTaskStateChange(r.Context(), ev)
		if err != nil {
			log.Error().Err(err).Str("message_id", msg.MessageID).Msg("Applying task state change failed")
			result = "failed"
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// Package http exposes webhooks, operations and queue state over HTTP.
package http

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database/model/queue"
	"ShopifyWithOdoo/internal/sync"
	"ShopifyWithOdoo/internal/telegram"
	"ShopifyWithOdoo/internal/version"
	"ShopifyWithOdoo/internal/webhook"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

const HEADER_TOKEN = "X-Connector-Token"

// MAX_BODY limits webhook and csv uploads.
const MAX_BODY = 32 << 20

type Handler struct {
	// Token guards the operation and queue routes.
	Token string
	// Connect returns the connector of a configured instance.
	Connect func(instance string) (*connector.Connector, error)
}

func NewRouter(h *Handler) *httprouter.Router {
	router := httprouter.New()
	router.GET("/", h.HandlerOtherAll)
	router.POST("/webhook/shopify/:instance", h.HandlerWebhook)
	router.POST("/operation/:instance/:operation", h.HandlerOperation)
	router.GET("/queues/:instance", h.HandlerQueues)
	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	logger := logging.GetLogger()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("failed to send response, error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) authorized(r *http.Request) bool {
	token := r.Header.Get(HEADER_TOKEN)
	if h.Token == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(h.Token), []byte(token)) == 1
}

func (h *Handler) HandlerOtherAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := logging.GetLogger()
	logger.Debug("Start HandlerOtherAll")
	defer logger.Debug("End HandlerOtherAll")

	v := version.GetVersion()
	if _, err := fmt.Fprintf(w, "Version %s", v.String()); err != nil {
		logger.Errorf("failed to send response, error: %v", err)
	}
}

// HandlerWebhook answers 401 to a bad signature, 200 to accepted and
// duplicate deliveries and 500 when processing failed so that Shopify retries.
func (h *Handler) HandlerWebhook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := logging.GetLogger()
	logger.Info("Start HandlerWebhook")
	defer logger.Info("End HandlerWebhook")

	c, err := h.Connect(ps.ByName("instance"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MAX_BODY))
	r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "failed to read body"))
		return
	}
	logger.Debug("body\n\t", string(body))

	d := webhook.Delivery{
		Topic:      r.Header.Get(webhook.HEADER_TOPIC),
		ShopDomain: r.Header.Get(webhook.HEADER_SHOP_DOMAIN),
		WebhookID:  r.Header.Get(webhook.HEADER_WEBHOOK_ID),
		HMAC:       r.Header.Get(webhook.HEADER_HMAC),
		Body:       body,
	}
	handled, err := webhook.Handle(r.Context(), c, d)
	switch {
	case errors.Cause(err) == webhook.ErrInvalidSignature:
		logger.Infof("Webhook %s of %s rejected: %v", d.Topic, c.Name, err)
		writeError(w, http.StatusUnauthorized, err)
	case errors.Cause(err) == webhook.ErrUnknownTopic:
		logger.Infof("Webhook %s of %s ignored", d.Topic, c.Name)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	case err != nil:
		errorText := fmt.Sprintf("%s: webhook %s not processed: %v", c.Name, d.Topic, err)
		logger.Error(errorText)
		telegram.SendMessageToTelegramWithLogError(errorText)
		writeError(w, http.StatusInternalServerError, err)
	case !handled:
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (h *Handler) HandlerOperation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := logging.GetLogger()
	logger.Info("Start HandlerOperation")
	defer logger.Info("End HandlerOperation")

	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, errors.New("invalid token"))
		return
	}
	c, err := h.Connect(ps.ByName("instance"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MAX_BODY)
	p, err := params(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := sync.Run(r.Context(), c, ps.ByName("operation"), p)
	if err != nil {
		if errors.Cause(err) == sync.ErrUnknownOperation {
			writeError(w, http.StatusNotFound, err)
			return
		}
		logger.Errorf("failed operation %s of %s: %v", ps.ByName("operation"), c.Name, err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// params reads the operation arguments from the query and form. A csv file
// comes as multipart field "file" or as a text/csv body.
func params(r *http.Request) (sync.Params, error) {
	contentType := r.Header.Get("Content-Type")
	var file io.Reader
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(MAX_BODY); err != nil {
			return sync.Params{}, errors.Wrap(err, "failed to parse form")
		}
		if f, _, err := r.FormFile("file"); err == nil {
			file = f
		}
	default:
		if err := r.ParseForm(); err != nil {
			return sync.Params{}, errors.Wrap(err, "failed to parse form")
		}
		if strings.HasPrefix(contentType, "text/csv") {
			file = r.Body
		}
	}
	p, err := sync.ParseParams(r.Form)
	if err != nil {
		return p, err
	}
	p.CSV = file
	return p, nil
}

func (h *Handler) HandlerQueues(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := logging.GetLogger()
	logger.Debug("Start HandlerQueues")
	defer logger.Debug("End HandlerQueues")

	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, errors.New("invalid token"))
		return
	}
	c, err := h.Connect(ps.ByName("instance"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	queues, err := queue.ListWithCounts(c.DB, c.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, queues)
}

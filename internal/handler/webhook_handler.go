package handler

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"smsglue/internal/hashing"
	"smsglue/internal/models"
	"smsglue/internal/service"
	"smsglue/internal/util"
)

const maxBodyBytes = 1 << 20

// Envelope is the response shape the softphone and the enable form read.
// Failures are reported inside the envelope with HTTP 200.
type Envelope struct {
	Response EnvelopeBody `json:"response"`
}

type EnvelopeBody struct {
	Error       int           `json:"error"`
	Description string        `json:"description"`
	Hooks       *models.Hooks `json:"hooks,omitempty"`
}

// FetchResponse is the genericSmsFetch reply.
type FetchResponse struct {
	Date       string                 `json:"date"`
	UnreadSMSs []models.MessageRecord `json:"unread_smss"`
}

func successEnvelope(hooks *models.Hooks) Envelope {
	return Envelope{Response: EnvelopeBody{Error: 0, Description: "Success", Hooks: hooks}}
}

func invalidEnvelope() Envelope {
	return Envelope{Response: EnvelopeBody{Error: 400, Description: "Invalid parameters"}}
}

// WebhookHandler serves every inbound action of the relay.
type WebhookHandler struct {
	accounts    *service.AccountService
	registry    *service.DeviceRegistry
	notifier    *service.Notifier
	messages    *service.MessageSync
	sender      *service.Sender
	provisioner *service.Provisioner
	logger      *zap.Logger
	now         func() time.Time
}

func NewWebhookHandler(services *service.ServiceFactory, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		accounts:    services.AccountService(),
		registry:    services.DeviceRegistry(),
		notifier:    services.Notifier(),
		messages:    services.MessageSync(),
		sender:      services.Sender(),
		provisioner: services.Provisioner(),
		logger:      logger,
		now:         time.Now,
	}
}

// RegisterRoutes registers all webhook routes
func (h *WebhookHandler) RegisterRoutes(router chi.Router) {
	// Legacy single-endpoint dispatcher and the enable form
	router.Post("/", h.Action)
	router.Post("/enable", h.Enable)

	// Softphone and provider hooks
	router.Get("/provision/{id}", h.Provision)
	router.Get("/report/{id}/{device}/{app}", h.Report)
	router.Get("/push/{id}/{device}/{app}", h.Report)
	router.Get("/notify/{id}", h.Notify)
	router.Get("/refresh/{id}", h.Notify)
	router.Get("/fetch/{token}/{last_sms}", h.Fetch)
	router.Get("/send/{token}/{dst}/{msg}", h.Send)
	router.Post("/send/{token}/{dst}/{msg}", h.Send)
	router.Get("/balance/{token}", h.Balance)
	router.Get("/balance/{token}/{currency}", h.Balance)
	router.Get("/rate/{token}/{dst}", h.Rate)
}

// Action dispatches the POST / form used by older provisioning documents.
func (h *WebhookHandler) Action(w http.ResponseWriter, r *http.Request) {
	params, err := h.readParams(w, r)
	if err != nil {
		h.respondWithJSON(w, invalidEnvelope())
		return
	}

	switch params.Get("action") {
	case "enable":
		h.enable(w, r, params)
	case "push", "report":
		h.report(w, r, params.Get("id"), params.Get("device"), params.Get("app"))
	case "fetch":
		h.fetch(w, r, params.Get("token"), params.Get("last_sms"))
	case "send":
		h.send(w, r, params.Get("token"), params.Get("dst"), params.Get("msg"))
	case "balance":
		h.balance(w, r, params.Get("token"), params.Get("currency"))
	case "rate":
		h.rate(w, params.Get("token"))
	default:
		h.respondWithJSON(w, invalidEnvelope())
	}
}

// Enable handles the credential form: it configures the provider callback
// and returns the account hooks.
func (h *WebhookHandler) Enable(w http.ResponseWriter, r *http.Request) {
	params, err := h.readParams(w, r)
	if err != nil {
		h.respondWithJSON(w, invalidEnvelope())
		return
	}
	h.enable(w, r, params)
}

func (h *WebhookHandler) enable(w http.ResponseWriter, r *http.Request, params url.Values) {
	creds := models.AccountCredentials{
		Username: params.Get("user"),
		Password: params.Get("pass"),
		DID:      params.Get("did"),
	}

	_, hooks, err := h.accounts.Enable(r.Context(), creds, requestOrigin(r), params.Get("currency"))
	if err != nil {
		h.respondWithError(w, err, "enable")
		return
	}
	h.respondWithJSON(w, successEnvelope(&hooks))
}

// Provision serves the one-shot provisioning document.
func (h *WebhookHandler) Provision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	xml := models.EmptyAccountXML
	if hashing.ValidIdentifier(id) {
		xml = h.provisioner.Consume(r.Context(), id)
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml))
}

// Report registers the push token the softphone reports for an account.
func (h *WebhookHandler) Report(w http.ResponseWriter, r *http.Request) {
	h.report(w, r, chi.URLParam(r, "id"), pathParam(r, "device"), pathParam(r, "app"))
}

func (h *WebhookHandler) report(w http.ResponseWriter, r *http.Request, id, device, app string) {
	if !hashing.ValidIdentifier(id) {
		h.respondWithJSON(w, invalidEnvelope())
		return
	}
	if err := h.registry.Register(r.Context(), id, device, app); err != nil {
		h.respondWithError(w, err, "report")
		return
	}
	h.respondWithJSON(w, successEnvelope(nil))
}

// Notify is called by the provider when an SMS arrives. It drops the message
// cache and wakes every device. The provider retries unless it reads "ok".
func (h *WebhookHandler) Notify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if hashing.ValidIdentifier(id) {
		if err := h.messages.Invalidate(r.Context(), id); err != nil {
			h.logger.Warn("Failed to clear message cache",
				util.Identifier("id", id),
				util.ErrorField(err))
		}
		h.notifier.Notify(r.Context(), id)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Fetch returns messages newer than the softphone's last known id.
func (h *WebhookHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	h.fetch(w, r, chi.URLParam(r, "token"), chi.URLParam(r, "last_sms"))
}

func (h *WebhookHandler) fetch(w http.ResponseWriter, r *http.Request, token, lastSMS string) {
	cursor, err := strconv.ParseInt(strings.TrimSpace(lastSMS), 10, 64)
	if err != nil {
		cursor = 0
	}

	account := h.accounts.Resolve(token)
	records := h.messages.Fetch(r.Context(), account, cursor)

	h.respondWithJSON(w, FetchResponse{
		Date:       models.FormatDate(h.now()),
		UnreadSMSs: records,
	})
}

// Send relays an outbound message.
func (h *WebhookHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, chi.URLParam(r, "token"), pathParam(r, "dst"), pathParam(r, "msg"))
}

func (h *WebhookHandler) send(w http.ResponseWriter, r *http.Request, token, dst, msg string) {
	account := h.accounts.Resolve(token)
	if err := h.sender.Send(r.Context(), account, dst, msg); err != nil {
		h.respondWithError(w, err, "send")
		return
	}
	h.respondWithJSON(w, successEnvelope(nil))
}

// Balance reports the account balance, converted when a currency is given.
func (h *WebhookHandler) Balance(w http.ResponseWriter, r *http.Request) {
	h.balance(w, r, chi.URLParam(r, "token"), chi.URLParam(r, "currency"))
}

func (h *WebhookHandler) balance(w http.ResponseWriter, r *http.Request, token, currency string) {
	account := h.accounts.Resolve(token)
	balance, err := h.accounts.Balance(r.Context(), account, currency)
	if err != nil {
		h.respondWithError(w, err, "balance")
		return
	}
	h.respondWithJSON(w, balance)
}

// Rate reports the flat call and message rates.
func (h *WebhookHandler) Rate(w http.ResponseWriter, r *http.Request) {
	h.rate(w, chi.URLParam(r, "token"))
}

func (h *WebhookHandler) rate(w http.ResponseWriter, token string) {
	rates, err := h.accounts.Rate(h.accounts.Resolve(token))
	if err != nil {
		h.respondWithError(w, err, "rate")
		return
	}
	h.respondWithJSON(w, rates)
}

// readParams merges query, form and JSON body parameters.
func (h *WebhookHandler) readParams(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.Form, nil
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	params := r.URL.Query()
	for k, v := range body {
		switch val := v.(type) {
		case string:
			params.Set(k, val)
		case nil:
		default:
			params.Set(k, fmt.Sprint(val))
		}
	}
	return params, nil
}

func (h *WebhookHandler) respondWithJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondWithError answers with the invalid-parameters envelope.
func (h *WebhookHandler) respondWithError(w http.ResponseWriter, err error, action string) {
	if service.IsClientError(err) {
		h.logger.Info("Request rejected",
			util.String("action", action),
			util.ErrorField(err))
	} else {
		h.logger.Error("Request failed",
			util.String("action", action),
			util.ErrorField(err))
	}
	h.respondWithJSON(w, invalidEnvelope())
}

// pathParam returns a route parameter with any percent-encoding removed.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// requestOrigin rebuilds scheme://host as the client saw it.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"smsglue/internal/client"
	"smsglue/internal/encryption"
	"smsglue/internal/metrics"
	"smsglue/internal/models"
	"smsglue/internal/repository"
	"smsglue/internal/util"
)

const telephonyDateTimeLayout = "2006-01-02 15:04:05"

// MessageSync serves an account's received messages from the encrypted cache,
// refilling it from the telephony API on a miss.
type MessageSync struct {
	store       repository.BlobStore
	codec       *encryption.Codec
	telephony   TelephonyAPI
	historyDays int
	forwardDays int
	now         func() time.Time
	logger      *zap.Logger
}

func NewMessageSync(store repository.BlobStore, codec *encryption.Codec, telephony TelephonyAPI, historyDays, forwardDays int, logger *zap.Logger) *MessageSync {
	return &MessageSync{
		store:       store,
		codec:       codec,
		telephony:   telephony,
		historyDays: historyDays,
		forwardDays: forwardDays,
		now:         time.Now,
		logger:      logger,
	}
}

// Fetch returns the messages with an id greater than cursor. Failures degrade
// to an empty list.
func (m *MessageSync) Fetch(ctx context.Context, account models.Account, cursor int64) []models.MessageRecord {
	if !account.Valid() {
		return []models.MessageRecord{}
	}

	if cached := m.load(ctx, account); len(cached) > 0 {
		metrics.MessageCacheReads.WithLabelValues("hit").Inc()
		return models.FilterAfter(cached, cursor)
	}
	metrics.MessageCacheReads.WithLabelValues("miss").Inc()

	if err := m.refresh(ctx, account); err != nil {
		metrics.LiveFetches.WithLabelValues("error").Inc()
		m.logger.Warn("Live message fetch failed, returning no messages",
			util.Identifier("id", account.ID),
			util.ErrorField(err))
		return []models.MessageRecord{}
	}

	cached := m.load(ctx, account)
	if len(cached) == 0 {
		metrics.LiveFetches.WithLabelValues("empty").Inc()
		return []models.MessageRecord{}
	}
	metrics.LiveFetches.WithLabelValues("success").Inc()
	return models.FilterAfter(cached, cursor)
}

// Invalidate drops the cached history so the next Fetch goes live.
func (m *MessageSync) Invalidate(ctx context.Context, id string) error {
	if err := m.store.Clear(ctx, repository.NamespaceMessages, id); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

func (m *MessageSync) load(ctx context.Context, account models.Account) []models.MessageRecord {
	data, err := m.store.Load(ctx, repository.NamespaceMessages, account.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrBlobNotFound) {
			m.logger.Warn("Failed to read message cache",
				util.Identifier("id", account.ID),
				util.ErrorField(err))
		}
		return nil
	}

	var records []models.MessageRecord
	if err := m.codec.DecryptPayload(data, account.Credentials.Password, &records); err != nil {
		m.logger.Debug("Message cache unreadable", util.Identifier("id", account.ID))
		return nil
	}
	return records
}

func (m *MessageSync) refresh(ctx context.Context, account models.Account) error {
	now := m.now().UTC()
	from := now.AddDate(0, 0, -m.historyDays)
	to := now.AddDate(0, 0, m.forwardDays)

	sms, err := m.telephony.GetSMS(ctx, account.Credentials, from, to)
	if err != nil {
		return err
	}

	records := normalizeMessages(sms)
	data, err := m.codec.EncryptPayload(records, account.Credentials.Password)
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, repository.NamespaceMessages, account.ID, data); err != nil {
		return fmt.Errorf("failed to save messages: %w", err)
	}

	m.logger.Debug("Message cache refreshed",
		util.Identifier("id", account.ID),
		util.Int("messages", len(records)))
	return nil
}

// normalizeMessages converts API rows to records ordered by id. Rows without
// a numeric id are dropped; unparseable dates are kept as the zero time.
func normalizeMessages(sms []client.InboundSMS) []models.MessageRecord {
	records := make([]models.MessageRecord, 0, len(sms))
	for _, s := range sms {
		id, err := strconv.ParseInt(string(s.ID), 10, 64)
		if err != nil {
			continue
		}
		sent, _ := time.ParseInLocation(telephonyDateTimeLayout, s.Date, time.UTC)
		records = append(records, models.MessageRecord{
			ID:          id,
			SendingDate: models.FormatDate(sent),
			Sender:      util.DigitsOnly(string(s.Contact)),
			Text:        s.Message,
		})
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smsglue/internal/encryption"
	"smsglue/internal/metrics"
	"smsglue/internal/models"
	"smsglue/internal/repository"
	"smsglue/internal/util"
)

const resetTimeout = 30 * time.Second

// Provisioner stores one-shot provisioning documents. The first read returns
// the document and resets it to the empty account; an unread document is reset
// when its TTL elapses.
type Provisioner struct {
	store  repository.BlobStore
	codec  *encryption.Codec
	timer  *ProvisionTimer
	ttl    time.Duration
	logger *zap.Logger
}

func NewProvisioner(store repository.BlobStore, codec *encryption.Codec, timer *ProvisionTimer, ttl time.Duration, logger *zap.Logger) *Provisioner {
	return &Provisioner{
		store:  store,
		codec:  codec,
		timer:  timer,
		ttl:    ttl,
		logger: logger,
	}
}

// Create stores xml for id and restarts its expiry timer.
func (p *Provisioner) Create(ctx context.Context, id, xml string) error {
	var err error
	p.timer.Exclusive(id, func() {
		err = p.create(ctx, id, xml)
	})
	return err
}

func (p *Provisioner) create(ctx context.Context, id, xml string) error {
	if err := p.save(ctx, id, xml); err != nil {
		return err
	}

	p.timer.Schedule(id, p.ttl, func() {
		ctx, cancel := context.WithTimeout(context.Background(), resetTimeout)
		defer cancel()
		if err := p.save(ctx, id, models.EmptyAccountXML); err != nil {
			p.logger.Warn("Failed to expire provisioning payload",
				util.Identifier("id", id),
				util.ErrorField(err))
			return
		}
		metrics.ProvisionResets.WithLabelValues("expired").Inc()
		p.logger.Info("Provisioning payload expired", util.Identifier("id", id))
	})

	p.logger.Info("Provisioning payload created",
		util.Identifier("id", id),
		util.Duration("ttl", p.ttl))
	return nil
}

// Consume returns the stored document, or the empty account when there is
// none, and resets storage to the empty account.
func (p *Provisioner) Consume(ctx context.Context, id string) string {
	var xml string
	p.timer.Exclusive(id, func() {
		xml = p.consume(ctx, id)
	})
	return xml
}

func (p *Provisioner) consume(ctx context.Context, id string) string {
	p.timer.CancelIfPresent(id)

	data, err := p.store.Load(ctx, repository.NamespaceProvisions, id)
	if errors.Is(err, repository.ErrBlobNotFound) {
		return models.EmptyAccountXML
	}
	if err != nil {
		p.logger.Warn("Failed to load provisioning payload",
			util.Identifier("id", id),
			util.ErrorField(err))
		return models.EmptyAccountXML
	}

	var xml string
	readable := p.codec.DecryptPayload(data, "", &xml) == nil && xml != ""
	if !readable {
		xml = models.EmptyAccountXML
	}

	if !readable || xml != models.EmptyAccountXML {
		if err := p.save(ctx, id, models.EmptyAccountXML); err != nil {
			p.logger.Warn("Failed to reset provisioning payload",
				util.Identifier("id", id),
				util.ErrorField(err))
		} else {
			metrics.ProvisionResets.WithLabelValues("read").Inc()
		}
	}
	return xml
}

func (p *Provisioner) save(ctx context.Context, id, xml string) error {
	data, err := p.codec.EncryptPayload(xml, "")
	if err != nil {
		return err
	}
	if err := p.store.Save(ctx, repository.NamespaceProvisions, id, data); err != nil {
		return fmt.Errorf("failed to save provisioning payload: %w", err)
	}
	return nil
}

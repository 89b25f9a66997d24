package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"smsglue/internal/encryption"
	"smsglue/internal/hashing"
	"smsglue/internal/models"
	"smsglue/internal/util"
)

// Softphone placeholders substituted by the client when it calls a hook.
const (
	placeholderPushToken = "%pushToken%"
	placeholderPushAppID = "%pushappid%"
	placeholderLastSMSID = "%last_known_sms_id%"
	placeholderSMSTo     = "%sms_to%"
	placeholderSMSBody   = "%sms_body%"
	placeholderTarget    = "%targetNumber%"
)

// AccountService turns credentials into tokens, identifiers and hook URLs, and
// runs the account-level telephony operations.
type AccountService struct {
	codec       *encryption.Codec
	deriver     *hashing.IdentityDeriver
	telephony   TelephonyAPI
	provisioner *Provisioner
	rates       *RatesService
	baseURL     string
	logger      *zap.Logger
}

func NewAccountService(
	codec *encryption.Codec,
	deriver *hashing.IdentityDeriver,
	telephony TelephonyAPI,
	provisioner *Provisioner,
	rates *RatesService,
	baseURL string,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		codec:       codec,
		deriver:     deriver,
		telephony:   telephony,
		provisioner: provisioner,
		rates:       rates,
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      logger,
	}
}

// Issue validates credentials and builds the account with its token and id.
func (s *AccountService) Issue(creds models.AccountCredentials) (models.Account, error) {
	creds = creds.Normalize()
	if !creds.Valid() {
		return models.Account{}, ErrInvalidParameters
	}

	token, err := s.codec.EncodeToken(creds)
	if err != nil {
		return models.Account{}, err
	}
	id, err := s.deriver.DeriveIdentifier(creds.DID)
	if err != nil {
		return models.Account{}, err
	}
	return models.Account{Token: token, ID: id, Credentials: creds}, nil
}

// Resolve decodes a token. An undecodable token yields an invalid account.
func (s *AccountService) Resolve(token string) models.Account {
	creds, err := s.codec.DecodeToken(token)
	if err != nil {
		return models.Account{Token: token}
	}
	id, err := s.deriver.DeriveIdentifier(creds.DID)
	if err != nil {
		return models.Account{Token: token}
	}
	return models.Account{Token: token, ID: id, Credentials: creds}
}

// Hooks builds the account's URLs under origin, or under the configured base
// URL when one is set. Balance and rate hooks need a currency.
func (s *AccountService) Hooks(account models.Account, origin, currency string) models.Hooks {
	if s.baseURL != "" {
		origin = s.baseURL
	}
	origin = strings.TrimRight(origin, "/")
	id := url.PathEscape(account.ID)
	token := url.PathEscape(account.Token)

	hooks := models.Hooks{
		Provision: fmt.Sprintf("%s/provision/%s", origin, id),
		Report:    fmt.Sprintf("%s/report/%s/%s/%s", origin, id, placeholderPushToken, placeholderPushAppID),
		Notify:    fmt.Sprintf("%s/notify/%s", origin, id),
		Fetch:     fmt.Sprintf("%s/fetch/%s/%s", origin, token, placeholderLastSMSID),
		Send:      fmt.Sprintf("%s/send/%s/%s/%s", origin, token, placeholderSMSTo, placeholderSMSBody),
	}

	if currency = strings.ToUpper(strings.TrimSpace(currency)); currency != "" {
		hooks.Balance = fmt.Sprintf("%s/balance/%s/%s", origin, token, url.PathEscape(currency))
		hooks.Rate = fmt.Sprintf("%s/rate/%s/%s", origin, token, placeholderTarget)
	}
	return hooks
}

// AccountXML renders the softphone provisioning document. Invalid accounts get
// the empty account.
func (s *AccountService) AccountXML(account models.Account, hooks models.Hooks) string {
	if !account.Valid() {
		return models.EmptyAccountXML
	}

	var b strings.Builder
	b.WriteString("<account>")
	writeElement(&b, "pushTokenReporterUrl", hooks.Report)
	writeElement(&b, "genericSmsFetchUrl", hooks.Fetch)
	writeElement(&b, "genericSmsSendUrl", hooks.Send)
	writeElement(&b, "genericBalanceCheckUrl", hooks.Balance)
	writeElement(&b, "genericRateCheckUrl", hooks.Rate)
	if hooks.Rate != "" {
		writeElement(&b, "rateCheckMinNumberLength", "3")
	}
	writeElement(&b, "allowMessage", "1")
	writeElement(&b, "voiceMailNumber", "*97")
	b.WriteString("</account>")
	return b.String()
}

func writeElement(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString("<" + name + ">")
	b.WriteString(util.EscapeXML(value))
	b.WriteString("</" + name + ">")
}

// Enable points the DID's SMS callback at the notify hook and stores the
// provisioning document for the softphone.
func (s *AccountService) Enable(ctx context.Context, creds models.AccountCredentials, origin, currency string) (models.Account, models.Hooks, error) {
	account, err := s.Issue(creds)
	if err != nil {
		return models.Account{}, models.Hooks{}, err
	}
	hooks := s.Hooks(account, origin, currency)

	if err := s.telephony.SetSMS(ctx, account.Credentials, hooks.Notify); err != nil {
		s.logger.Warn("Failed to enable SMS callback",
			util.Identifier("id", account.ID),
			util.ErrorField(err))
		return models.Account{}, models.Hooks{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if err := s.provisioner.Create(ctx, account.ID, s.AccountXML(account, hooks)); err != nil {
		return models.Account{}, models.Hooks{}, err
	}

	s.logger.Info("Account enabled", util.Identifier("id", account.ID))
	return account, hooks, nil
}

// Balance reports the account balance converted to currency.
func (s *AccountService) Balance(ctx context.Context, account models.Account, currency string) (models.Balance, error) {
	if !account.Valid() {
		return models.Balance{}, ErrInvalidParameters
	}

	usd, err := s.telephony.GetBalance(ctx, account.Credentials)
	if err != nil {
		return models.Balance{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	code, rate, _ := s.rates.Rate(currency)
	amount := usd * rate
	return models.Balance{
		BalanceString: strconv.FormatFloat(amount, 'f', 2, 64),
		Balance:       amount,
		Currency:      code,
	}, nil
}

// Rate returns the flat rates shown by the softphone.
func (s *AccountService) Rate(account models.Account) (models.Rates, error) {
	if !account.Valid() {
		return models.Rates{}, ErrInvalidParameters
	}
	return models.Rates{
		CallRateString:    "1¢ / min",
		MessageRateString: "5¢",
	}, nil
}

// IsClientError reports whether err should be answered as invalid parameters.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidParameters) || errors.Is(err, ErrUpstream)
}

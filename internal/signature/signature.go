package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
)

// Params параметры, входящие в подписываемый payload
type Params struct {
	Region string
	SGM    int // Количество единиц монтажа
	SGE    int // Количество единиц этажной доставки
}

// Parsed разобранный токен подписи
// Нулевое значение означает "некорректный токен"
type Parsed struct {
	Timestamp int64
	Hash      string
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// Service подписывает и проверяет токены авторизации префилла и webhook
//
// Токен: "<timestamp>.<hex hmac-sha256>" над канонизированной строкой
// запроса с ключами в алфавитном порядке. Для совместимости с ссылками,
// подписанными до переименования полей, проверяется и устаревший вариант
// payload (m/e вместо sgm/sge), если включен legacy режим.
type Service struct {
	secret        []byte
	ttl           time.Duration
	legacyEnabled bool
	timeProvider  TimeProvider
}

// NewService создает сервис подписей
func NewService(secret string, ttl time.Duration, legacyEnabled bool) *Service {
	return &Service{
		secret:        []byte(secret),
		ttl:           ttl,
		legacyEnabled: legacyEnabled,
		timeProvider:  &RealTimeProvider{},
	}
}

// WithTimeProvider подменяет провайдер времени (для тестов)
func (s *Service) WithTimeProvider(tp TimeProvider) *Service {
	s.timeProvider = tp
	return s
}

// NormalizeParams дополняет параметры из заказа, когда вызывающий их опустил
// Счетчики меньше нуля трактуются как "не переданы"
func NormalizeParams(order *domain.Order, params Params) Params {
	normalized := params

	if normalized.Region == "" && order != nil {
		normalized.Region = order.Region
	}
	if normalized.SGM < 0 {
		normalized.SGM = 0
		if order != nil {
			normalized.SGM = order.MontageCount
		}
	}
	if normalized.SGE < 0 {
		normalized.SGE = 0
		if order != nil {
			normalized.SGE = order.EtageCount
		}
	}

	return normalized
}

// Sign подписывает параметры для заказа
// ts <= 0 заменяется текущим временем
func (s *Service) Sign(orderID int64, params Params, ts int64) string {
	if ts <= 0 {
		ts = s.timeProvider.Now().Unix()
	}

	payload := canonicalPayload(orderID, params, ts, false)
	return fmt.Sprintf("%d.%s", ts, s.hmacHex(payload))
}

// Parse разбирает строку токена
// Некорректный формат дает нулевое значение, не ошибку: вызывающие
// обрабатывают все невалидные токены одинаково
func Parse(sig string) Parsed {
	dot := strings.IndexByte(sig, '.')
	if dot < 0 {
		return Parsed{}
	}

	tsPart, hashPart := sig[:dot], sig[dot+1:]

	// Unix timestamp не короче 10 цифр
	if len(tsPart) < 10 {
		return Parsed{}
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil || ts <= 0 {
		return Parsed{}
	}

	if len(hashPart) < 32 || len(hashPart) > 128 {
		return Parsed{}
	}
	if _, err := hex.DecodeString(hashPart); err != nil {
		return Parsed{}
	}

	return Parsed{Timestamp: ts, Hash: strings.ToLower(hashPart)}
}

// Validate проверяет токен: окно TTL и совпадение HMAC
// Сначала канонический payload (sgm/sge), затем - если включено - legacy (m/e)
func (s *Service) Validate(orderID int64, sig string, params Params) bool {
	parsed := Parse(sig)
	if parsed.Timestamp == 0 {
		return false
	}

	now := s.timeProvider.Now().Unix()
	diff := now - parsed.Timestamp
	if diff < 0 {
		diff = -diff
	}
	if time.Duration(diff)*time.Second > s.ttl {
		return false
	}

	supplied := []byte(parsed.Hash)

	canonical := s.hmacHex(canonicalPayload(orderID, params, parsed.Timestamp, false))
	if hmac.Equal(supplied, []byte(canonical)) {
		return true
	}

	if s.legacyEnabled {
		legacy := s.hmacHex(canonicalPayload(orderID, params, parsed.Timestamp, true))
		if hmac.Equal(supplied, []byte(legacy)) {
			return true
		}
	}

	return false
}

// canonicalPayload детерминированная сериализация параметров для HMAC:
// строковые значения, ключи в алфавитном порядке
func canonicalPayload(orderID int64, params Params, ts int64, legacy bool) string {
	pairs := map[string]string{
		"order":  strconv.FormatInt(orderID, 10),
		"region": params.Region,
		"ts":     strconv.FormatInt(ts, 10),
	}
	if legacy {
		pairs["m"] = strconv.Itoa(params.SGM)
		pairs["e"] = strconv.Itoa(params.SGE)
	} else {
		pairs["sgm"] = strconv.Itoa(params.SGM)
		pairs["sge"] = strconv.Itoa(params.SGE)
	}

	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+pairs[key])
	}

	return strings.Join(parts, "&")
}

func (s *Service) hmacHex(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

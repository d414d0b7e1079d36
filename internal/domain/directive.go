package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Directive обязательный документ, который каждый участник должен подтвердить.
// Неизменяем после публикации: правка текста создает новую версию с большим ID.
type Directive struct {
	ID            int64     `json:"id"`
	Text          string    `json:"text"`
	Digest        string    `json:"digest"` // sha256(Text) в hex, входит в подписываемый payload
	EffectiveFrom time.Time `json:"effective_from"`
}

// NewDirective собирает черновик директивы (ID назначает DirectiveStore).
func NewDirective(text string, effectiveFrom time.Time) Directive {
	return Directive{
		Text:          text,
		Digest:        TextDigest(text),
		EffectiveFrom: effectiveFrom.UTC(),
	}
}

// TextDigest считает отпечаток текста директивы.
func TextDigest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ackPayloadVersion меняется только при несовместимой смене формата подписи.
const ackPayloadVersion = "directive-ack/v1"

// AckPayload каноническое сообщение, которое участник подписывает своим ключом.
// Привязывает подпись к участнику, версии и конкретному тексту директивы.
func AckPayload(actorID string, d Directive) []byte {
	var b strings.Builder
	b.WriteString(ackPayloadVersion)
	b.WriteByte('\n')
	b.WriteString(actorID)
	b.WriteByte('\n')
	b.WriteString(strconv.FormatInt(d.ID, 10))
	b.WriteByte('\n')
	b.WriteString(d.Digest)
	return []byte(b.String())
}

// SelectCurrent возвращает директиву с наибольшим EffectiveFrom <= now.
// При равенстве времени побеждает больший ID.
func SelectCurrent(directives []Directive, now time.Time) (Directive, bool) {
	var (
		best  Directive
		found bool
	)
	for _, d := range directives {
		if d.EffectiveFrom.After(now) {
			continue
		}
		if !found ||
			d.EffectiveFrom.After(best.EffectiveFrom) ||
			(d.EffectiveFrom.Equal(best.EffectiveFrom) && d.ID > best.ID) {
			best = d
			found = true
		}
	}
	return best, found
}

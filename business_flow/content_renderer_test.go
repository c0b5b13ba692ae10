package businessflow

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/farhadmsg/blastline/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func newTestRenderer() *ContentRenderer {
	return NewContentRenderer(rand.New(rand.NewSource(1)))
}

func TestRenderNameSubstitution(t *testing.T) {
	renderer := newTestRenderer()
	settings := &models.PlatformSettings{}

	tests := []struct {
		name     string
		template string
		contact  Recipient
		expected string
	}{
		{"simple placeholder", "Hi {{name}}!", Recipient{Name: "Sara"}, "Hi Sara!"},
		{"padded placeholder", "Hi {{ name }}!", Recipient{Name: "Sara"}, "Hi Sara!"},
		{"multiple placeholders", "{{name}}, dear {{name}}", Recipient{Name: "Sara"}, "Sara, dear Sara"},
		{"no placeholder", "plain text", Recipient{Name: "Sara"}, "plain text"},
		{"nameless recipient gets destination", "Hi {{name}}!", Recipient{Destination: "15551234567"}, "Hi 15551234567!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderer.Render(tt.template, tt.contact, models.MessageChannelSMS, settings)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRenderSpintax(t *testing.T) {
	settings := &models.PlatformSettings{SpinnerEnabled: true}

	t.Run("picks one alternative per group", func(t *testing.T) {
		renderer := newTestRenderer()
		got := renderer.Render("{Hello|Hi|Hey} world", Recipient{}, models.MessageChannelSMS, settings)

		assert.Contains(t, []string{"Hello world", "Hi world", "Hey world"}, got)
		assert.NotContains(t, got, "{")
	})

	t.Run("deterministic for a fixed seed", func(t *testing.T) {
		first := newTestRenderer().Render("{a|b|c} {d|e|f}", Recipient{}, models.MessageChannelSMS, settings)
		second := newTestRenderer().Render("{a|b|c} {d|e|f}", Recipient{}, models.MessageChannelSMS, settings)
		assert.Equal(t, first, second)
	})

	t.Run("disabled spinner leaves groups alone", func(t *testing.T) {
		renderer := newTestRenderer()
		got := renderer.Render("{Hello|Hi} world", Recipient{}, models.MessageChannelSMS, &models.PlatformSettings{})
		assert.Equal(t, "{Hello|Hi} world", got)
	})

	t.Run("whatsapp never spins", func(t *testing.T) {
		renderer := newTestRenderer()
		got := renderer.Render("{Hello|Hi} world", Recipient{}, models.MessageChannelWhatsApp, settings)
		assert.Equal(t, "{Hello|Hi} world", got)
	})

	t.Run("braces without alternatives are not groups", func(t *testing.T) {
		renderer := newTestRenderer()
		got := renderer.Render("use {placeholder} here", Recipient{}, models.MessageChannelSMS, settings)
		assert.Equal(t, "use {placeholder} here", got)
	})
}

func TestRenderProfanityMasking(t *testing.T) {
	renderer := newTestRenderer()
	settings := &models.PlatformSettings{ProfanityWords: pq.StringArray{"darn", "heck"}}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"masks listed word", "well darn it", "well **** it"},
		{"case insensitive", "DARN and Heck", "**** and ****"},
		{"clean text untouched", "all good here", "all good here"},
		{"mask length matches rune count", "darn", strings.Repeat("*", 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderer.Render(tt.template, Recipient{}, models.MessageChannelWhatsApp, settings)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("masking runs on the template before variation", func(t *testing.T) {
		spinning := &models.PlatformSettings{
			SpinnerEnabled: true,
			ProfanityWords: pq.StringArray{"darn it", "darn"},
		}
		got := renderer.Render("{darn|darn} it", Recipient{}, models.MessageChannelSMS, spinning)
		assert.Equal(t, "**** it", got)
	})
}

package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataLookup(t *testing.T) {
	data := DataFromJSON(`{"UserName":"Ada","Count":42,"Empty":""}`)

	t.Run("exact match", func(t *testing.T) {
		v, ok := data.Lookup("UserName")
		require.True(t, ok)
		assert.Equal(t, "Ada", v)
	})

	t.Run("case-insensitive fallback", func(t *testing.T) {
		v, ok := data.Lookup("username")
		require.True(t, ok)
		assert.Equal(t, "Ada", v)
	})

	t.Run("numbers render as strings", func(t *testing.T) {
		v, ok := data.Lookup("Count")
		require.True(t, ok)
		assert.Equal(t, "42", v)
	})

	t.Run("missing key", func(t *testing.T) {
		_, ok := data.Lookup("Nope")
		assert.False(t, ok)
	})

	t.Run("empty document", func(t *testing.T) {
		_, ok := DataFromJSON("").Lookup("UserName")
		assert.False(t, ok)
	})
}

func TestEngineRenderPlaceholders(t *testing.T) {
	engine := NewEngine()
	data := DataFromJSON(`{"UserName":"Ada"}`)

	t.Run("substitutes known keys", func(t *testing.T) {
		out := engine.Render("Welcome {{UserName}}", data)
		assert.Equal(t, "Welcome Ada", out)
	})

	t.Run("leaves unknown tokens intact", func(t *testing.T) {
		out := engine.Render("Hello {{Missing}}", data)
		assert.Equal(t, "Hello {{Missing}}", out)
	})

	t.Run("is deterministic", func(t *testing.T) {
		first := engine.Render("{{UserName}} {{UserName}}", data)
		second := engine.Render("{{UserName}} {{UserName}}", data)
		assert.Equal(t, first, second)
	})
}

func TestEngineRenderConditionals(t *testing.T) {
	engine := NewEngine()

	t.Run("emits content when key is truthy", func(t *testing.T) {
		data := DataFromJSON(`{"Activated":"true"}`)
		out := engine.Render("{{#if Activated}}OK{{/if}}", data)
		assert.Equal(t, "OK", out)
	})

	t.Run("drops content for literal false", func(t *testing.T) {
		data := DataFromJSON(`{"Activated":"false"}`)
		out := engine.Render("{{#if Activated}}OK{{/if}}", data)
		assert.NotContains(t, out, "OK")
	})

	t.Run("false check is case-insensitive", func(t *testing.T) {
		data := DataFromJSON(`{"Activated":"FALSE"}`)
		out := engine.Render("{{#if Activated}}OK{{/if}}", data)
		assert.Empty(t, out)
	})

	t.Run("drops content for empty value", func(t *testing.T) {
		data := DataFromJSON(`{"Activated":""}`)
		out := engine.Render("{{#if Activated}}OK{{/if}}", data)
		assert.Empty(t, out)
	})

	t.Run("drops content for missing key", func(t *testing.T) {
		out := engine.Render("{{#if Activated}}OK{{/if}}", DataFromJSON(`{}`))
		assert.Empty(t, out)
	})

	t.Run("surrounding text is preserved", func(t *testing.T) {
		data := DataFromJSON(`{"Activated":"yes"}`)
		out := engine.Render("before {{#if Activated}}OK{{/if}} after", data)
		assert.Equal(t, "before OK after", out)
	})
}

func TestEngineRenderLoops(t *testing.T) {
	engine := NewEngine()

	t.Run("iterates via count and indexed fields", func(t *testing.T) {
		data := DataFromJSON(`{
			"items_count": 2,
			"items_0_name": "Widget", "items_0_price": "9.99",
			"items_1_name": "Gadget", "items_1_price": "19.99"
		}`)
		out := engine.Render("{{#each items}}{{name}}: {{price}}\n{{/each}}", data)
		assert.Equal(t, "Widget: 9.99\nGadget: 19.99\n", out)
	})

	t.Run("zero count removes the block", func(t *testing.T) {
		data := DataFromJSON(`{"items_count": 0}`)
		out := engine.Render("{{#each items}}{{name}}{{/each}}", data)
		assert.Empty(t, out)
	})

	t.Run("missing count removes the block", func(t *testing.T) {
		out := engine.Render("{{#each items}}{{name}}{{/each}}", DataFromJSON(`{}`))
		assert.Empty(t, out)
	})

	t.Run("missing iteration field keeps its token", func(t *testing.T) {
		data := DataFromJSON(`{"items_count": 1, "items_0_name": "Widget"}`)
		out := engine.Render("{{#each items}}{{name}}{{sku}}{{/each}}", data)
		assert.Contains(t, out, "Widget")
		assert.Contains(t, out, "{{sku}}")
	})
}

func TestEngineValidate(t *testing.T) {
	engine := NewEngine()

	t.Run("passes clean text", func(t *testing.T) {
		assert.NoError(t, engine.Validate("Hello Ada", false))
	})

	t.Run("fails on unresolved tokens", func(t *testing.T) {
		err := engine.Validate("Hello {{Missing}}", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "{{Missing}}")
	})

	t.Run("passes balanced html", func(t *testing.T) {
		assert.NoError(t, engine.Validate("<html><body><p>hi</p></body></html>", true))
	})

	t.Run("fails unbalanced html", func(t *testing.T) {
		err := engine.Validate("<html><body><div>hi</body></html>", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "div")
	})

	t.Run("void tags need no closing", func(t *testing.T) {
		assert.NoError(t, engine.Validate("<p>line<br>break<img src=\"x\"></p>", true))
	})

	t.Run("self-closed tags need no closing", func(t *testing.T) {
		assert.NoError(t, engine.Validate("<p>hi<br/></p>", true))
	})

	t.Run("plain text skips tag balance", func(t *testing.T) {
		assert.NoError(t, engine.Validate("<div>not html", false))
	})
}

func TestEngineWelcomeScenario(t *testing.T) {
	engine := NewEngine()

	subjectTmpl := "Welcome {{UserName}}"
	bodyTmpl := "Hi {{UserName}}, {{#if Activated}}OK{{/if}}"

	t.Run("activated", func(t *testing.T) {
		data := DataFromJSON(`{"UserName":"Ada","Activated":"true"}`)
		subject := engine.Render(subjectTmpl, data)
		body := engine.Render(bodyTmpl, data)

		assert.Equal(t, "Welcome Ada", subject)
		assert.Contains(t, body, "OK")
		assert.NoError(t, engine.Validate(subject, false))
		assert.NoError(t, engine.Validate(body, false))
	})

	t.Run("not activated", func(t *testing.T) {
		data := DataFromJSON(`{"UserName":"Ada","Activated":"false"}`)
		body := engine.Render(bodyTmpl, data)
		assert.NotContains(t, body, "OK")
	})
}

package llm

const equivalencePrompt = `You compare two statements about a person's values or behavior.
Decide whether they express the same underlying principle, even if worded differently.

Statement A: %s
Statement B: %s

Respond ONLY with JSON, no markdown:
{"verdict":"equivalent|not_equivalent","confidence":"high|medium|low"}`

const conflictPrompt = `Do these two identity statements pull in opposite directions, so that acting on one
would compromise the other?

Statement A: %s
Statement B: %s

Respond ONLY with JSON, no markdown:
{"conflict":true|false,"description":"one sentence naming the tension, empty if none"}`

const classifyPrompt = `Classify this statement extracted from someone's writing.

Statement: %s

Fields:
- stance: "assert" (states it), "deny" (rejects it), "question" (wonders about it), "qualify" (holds it with conditions)
- importance: "core" (defining), "supporting" (reinforces something defining), "peripheral" (incidental)
- source_kind: "agent_initiated", "user_elicited", "context_dependent", "consistent_across_context"
- dimension: one of "identity-core", "character-traits", "voice-presence", "honesty-framework",
  "boundaries-ethics", "relationship-dynamics", "continuity-growth"

Respond ONLY with JSON, no markdown:
{"stance":"...","importance":"...","source_kind":"...","dimension":"..."}`

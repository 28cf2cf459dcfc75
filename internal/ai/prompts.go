package ai

// SuggestChecklistMarker is the control token the reflection prompt asks the
// model to append when a checklist would help. It is stripped from the reply
// and surfaced as a boolean flag.
const SuggestChecklistMarker = "[SUGGEST_CHECKLIST]"

const reflectionSystemPrompt = `You are a reflection and self-analysis companion. Help the user think through their thoughts, feelings and experience. Be empathetic and supportive. Ask guiding questions that deepen the reflection. Keep replies short but substantive.

If the user asks what to do or requests tasks, you may offer to add them to a checklist. In that case append the special marker [SUGGEST_CHECKLIST] at the end of your reply so the system can offer to create one.

If the user asks you to assess their state, you may analyze their neurotransmitters.`

const summaryRefreshPrompt = `Summarize the key facts, topics and decisions of the conversation below in 2-3 sentences. Preserve names and concrete details so the conversation can continue naturally. Reply with the summary only.`

const stateAnalysisPrompt = `Analyze the entries and assess the current psychophysiological state.

Return JSON in this format:
{
    "metrics": {
        "dopamine": 0-10,
        "serotonin": 0-10,
        "gaba": 0-10,
        "noradrenaline": 0-10,
        "cortisol": 0-10,
        "testosterone": 0-10,
        "pfc_activity": 0-10,
        "focus": 0-10,
        "energy": 0-10,
        "motivation": 0-10
    },
    "analysis": "Short state analysis (2-3 sentences)"
}

IMPORTANT: in "analysis", address the person directly in the second person, as if talking to them.
Do NOT write in the third person ("the user", "he/she").

Metric meaning:
- dopamine: pleasure, reward, drive to act
- serotonin: mood, calm, contentment
- gaba: relaxation, reduced anxiety
- noradrenaline: alertness, concentration, stress response
- cortisol: stress level (high = bad)
- testosterone: confidence, energy, dominance
- pfc_activity: prefrontal cortex activity, self-control
- focus: ability to concentrate
- energy: overall energy level
- motivation: desire to act

Score based on what the person says about their condition, mood and activities.`

const checklistSuggestionPrompt = `Based on the dialog with the user, suggest tasks that could help.

Return JSON:
{
    "items": ["task 1", "task 2", ...],
    "reasoning": "Why these tasks could help (1-2 sentences)"
}

Suggest only relevant tasks, at most 5.`

const dialogSummaryPrompt = `Based on the dialog, create a short digest - a note with the key thoughts and insights.

Return JSON:
{
    "title": "Short title (3-5 words)",
    "content": "Structured digest with the key thoughts, insights and conclusions from the dialog. Use bullet lists where appropriate."
}

Write in the first person, as if it were the user's personal note.`

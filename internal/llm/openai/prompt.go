package openai

const summarizeSystemPrompt = `You summarize documents. Write a concise summary of the text the user provides in the same language as the text. Use at most 200 words. Do not add facts that are not in the text.`

const analyzeSystemPrompt = `You analyze the structure of documents. Reply with a single JSON object with these keys:
"documentType" (string, e.g. "report", "invoice", "spreadsheet", "presentation", "letter"),
"language" (ISO 639-1 code),
"title" (string, empty if none),
"sections" (array of section headings in order),
"keyTopics" (array of up to 10 short topics),
"entities" (array of notable people, organizations or places),
"summary" (one sentence).
Use only information present in the text.`

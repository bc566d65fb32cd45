package cel

// ConditionExamples lists filter conditions accepted by the dispatch
// filter; the management API returns them as hints.
var ConditionExamples = map[string]string{
	"source_equals":     `source_id == "com.example.chat"`,
	"source_in_list":    `source_id in ["com.example.chat", "com.example.mail"]`,
	"title_contains":    `title.contains("invoice")`,
	"text_matches":      `text.matches("(?i)order #[0-9]+")`,
	"min_importance":    `importance >= 3`,
	"skip_summaries":    `!is_summary`,
	"category":          `category_id == "alerts"`,
	"with_picture":      `has_image`,
	"combined":          `source_id == "com.example.bank" && importance >= 2 && !is_summary`,
	"title_starts_with": `title.startsWith("[PROD]")`,
}

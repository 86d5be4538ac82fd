package catalog

// Default pattern tables. Intent patterns are tested against lowercased
// text; every extraction pattern has exactly one capture group.

var defaultIntents = map[string][]string{
	"greeting": {
		`\b(hello|hi|hey|good morning|good afternoon|good evening)\b`,
		`\b(start|begin|new conversation)\b`,
		`^(hi|hello|hey)[\s!.]*$`,
	},
	"support": {
		`\b(help|support|assistance|problem|issue|trouble)\b`,
		`\b(claim|policy|coverage|benefits)\b`,
		`\b(can't|cannot|unable|difficulty|error)\b`,
		`\b(fix|resolve|solve|repair)\b`,
		`\b(existing|current|my policy)\b`,
	},
	"sales": {
		`\b(buy|purchase|get|want|need|interested)\b.*\b(insurance|policy|coverage)\b`,
		`\b(quote|price|cost|rate|premium)\b`,
		`\b(new|additional|more) (insurance|policy|coverage)\b`,
		`\b(auto|car|home|life|health) insurance\b`,
		`\b(sign up|enroll|apply)\b`,
	},
	"general": {
		`\b(information|info|about|what|how|when|where|why)\b`,
		`\b(explain|tell me|describe)\b`,
		`\b(question|ask|wondering)\b`,
	},
}

var defaultFields = map[string]FieldPatterns{
	"name": {
		Triggers: []string{
			`\b(my name is|i'm|i am|call me)\b`,
			`\b(name|called)\b`,
		},
		Extraction: []string{
			`(?:my name is|i'm|i am|call me)\s+([a-zA-Z\s]{2,30}?)(?:\s+and|\s*,|\s*$)`,
			`^([a-zA-Z\s]{2,30}?)(?:\s+here|$)`,
		},
	},
	"policy_number": {
		Triggers: []string{
			`\b(policy|policy number|account number)\b`,
			`\b[a-zA-Z]{2,3}\d{6,10}\b`,
			`\b\d{8,12}\b`,
		},
		Extraction: []string{
			`(?:policy number|policy|number)\s*(?:is|:)?\s*([a-zA-Z0-9\-]+)`,
			`\b([a-zA-Z]{2,3}\d{6,10})\b`,
			`\b(\d{8,12})\b`,
		},
	},
	"contact_info": {
		Triggers: []string{
			`@`,
			`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`,
			`\b(email|phone|contact)\b`,
		},
		Extraction: []string{
			`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`,
			`(\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4})`,
		},
	},
	"inquiry_type": {
		Triggers: []string{
			`\b(help|support|problem|issue|claim)\b`,
			`\b(buy|purchase|quote|new policy)\b`,
		},
		Extraction: []string{
			`\b(support|help|assistance|problem|issue|claim)\b`,
			`\b(sales|buy|purchase|quote|new policy|insurance)\b`,
		},
	},
}

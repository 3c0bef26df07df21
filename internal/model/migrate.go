package model

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&Company{},
		&User{},
		&Test{},
		&Dimension{},
		&Question{},
		&TestSession{},
		&Answer{},
		&TestResult{},
		&AIAnalysis{},
		&ArchiveIndexEntry{},
		&Invitation{},
	}
}

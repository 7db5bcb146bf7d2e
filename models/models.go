package models

// All lists every persisted model, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Session{},
		&Project{},
		&Location{},
		&Character{},
		&ShootingDay{},
		&Sequence{},
		&AnalysisJob{},
		&FestivalApplication{},
		&BudgetLine{},
		&FinancingSource{},
		&Audience{},
	}
}

package utils

import "time"

func ParseDate(dateStr string) (*time.Time, error) {
	var date time.Time

	if dateStr != "" {
		incomingDate, err := time.Parse(time.DateOnly, dateStr)
		if err != nil {
			return nil, err
		}

		date = incomingDate
	}

	return &date, nil
}

// LastCompleteDay retorna o dia anterior ao instante de análise, no fuso informado.
// O dia corrente ainda está em andamento e nunca é analisado.
func LastCompleteDay(analysisTime time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}

	local := analysisTime.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	return today.AddDate(0, 0, -1)
}

// DaysBack retorna os `days` dias que terminam em end (inclusive), em ordem crescente
func DaysBack(end time.Time, days int) []time.Time {
	dates := make([]time.Time, 0, days)
	for i := days - 1; i >= 0; i-- {
		dates = append(dates, end.AddDate(0, 0, -i))
	}
	return dates
}

// AnalysisTimeFor retorna um instante de análise cujo último dia completo é referenceDate.
// Usado para reprocessar ou pré-visualizar um dia específico.
func AnalysisTimeFor(referenceDate time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}

	next := referenceDate.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 12, 0, 0, 0, loc)
}

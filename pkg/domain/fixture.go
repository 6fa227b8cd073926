package domain

import "time"

// CanonicalDataset returns the bundled Antarctic survey fixture: five
// scientists, three sites, eight visits (one undated), and twenty-one
// readings (two unattributed). All query acceptance expectations are defined
// against this data.
func CanonicalDataset() Dataset {
	return Dataset{
		People: []Person{
			{ID: "dyer", Personal: "William", Family: "Dyer"},
			{ID: "pb", Personal: "Frank", Family: "Pabodie"},
			{ID: "lake", Personal: "Anderson", Family: "Lake"},
			{ID: "roe", Personal: "Valentina", Family: "Roerich"},
			{ID: "danforth", Personal: "Frank", Family: "Danforth"},
		},
		Sites: []Site{
			{Name: "DR-1", Lat: -49.85, Long: -128.57},
			{Name: "DR-3", Lat: -47.15, Long: -126.72},
			{Name: "MSK-4", Lat: -48.87, Long: -123.40},
		},
		Visits: []Visit{
			{ID: 619, Site: "DR-1", Dated: DatePtr(1927, time.February, 8)},
			{ID: 622, Site: "DR-1", Dated: DatePtr(1927, time.February, 10)},
			{ID: 734, Site: "DR-3", Dated: DatePtr(1930, time.January, 7)},
			{ID: 735, Site: "DR-3", Dated: DatePtr(1930, time.January, 12)},
			{ID: 751, Site: "DR-3", Dated: DatePtr(1930, time.February, 26)},
			{ID: 752, Site: "DR-3"},
			{ID: 837, Site: "MSK-4", Dated: DatePtr(1932, time.January, 14)},
			{ID: 844, Site: "DR-1", Dated: DatePtr(1932, time.March, 22)},
		},
		Readings: []Reading{
			{Taken: 619, Person: personRef("dyer"), Quant: QuantRadiation, Value: 9.82},
			{Taken: 619, Person: personRef("dyer"), Quant: QuantSalinity, Value: 0.13},
			{Taken: 622, Person: personRef("dyer"), Quant: QuantRadiation, Value: 7.80},
			{Taken: 622, Person: personRef("dyer"), Quant: QuantSalinity, Value: 0.09},
			{Taken: 734, Person: personRef("pb"), Quant: QuantRadiation, Value: 8.41},
			{Taken: 734, Person: personRef("lake"), Quant: QuantSalinity, Value: 0.05},
			{Taken: 734, Person: personRef("pb"), Quant: QuantTemperature, Value: -21.50},
			{Taken: 735, Person: personRef("pb"), Quant: QuantRadiation, Value: 7.22},
			{Taken: 735, Quant: QuantSalinity, Value: 0.06},
			{Taken: 735, Quant: QuantTemperature, Value: -26.00},
			{Taken: 751, Person: personRef("pb"), Quant: QuantRadiation, Value: 4.35},
			{Taken: 751, Person: personRef("pb"), Quant: QuantTemperature, Value: -18.50},
			{Taken: 751, Person: personRef("lake"), Quant: QuantSalinity, Value: 0.10},
			{Taken: 752, Person: personRef("lake"), Quant: QuantRadiation, Value: 2.19},
			{Taken: 752, Person: personRef("lake"), Quant: QuantSalinity, Value: 0.09},
			{Taken: 752, Person: personRef("lake"), Quant: QuantTemperature, Value: -16.00},
			{Taken: 752, Person: personRef("roe"), Quant: QuantSalinity, Value: 41.60},
			{Taken: 837, Person: personRef("lake"), Quant: QuantRadiation, Value: 1.46},
			{Taken: 837, Person: personRef("lake"), Quant: QuantSalinity, Value: 0.21},
			{Taken: 837, Person: personRef("roe"), Quant: QuantSalinity, Value: 22.50},
			{Taken: 844, Person: personRef("roe"), Quant: QuantRadiation, Value: 11.25},
		},
	}
}

func personRef(id string) *string { return &id }

// CanonicalResults returns the published reference output for the canonical
// dataset. It is the acceptance fixture: every engine must reproduce it
// exactly.
func CanonicalResults() Results {
	return Results{
		VisitCounts: []VisitCount{
			{Site: "DR-1", Visits: 3},
			{Site: "DR-3", Visits: 4},
			{Site: "MSK-4", Visits: 1},
		},
		ReadingCounts: []ReadingCount{
			{Site: "DR-1", Quant: QuantRadiation, Readings: 3},
			{Site: "DR-1", Quant: QuantSalinity, Readings: 2},
			{Site: "DR-3", Quant: QuantRadiation, Readings: 4},
			{Site: "DR-3", Quant: QuantSalinity, Readings: 5},
			{Site: "DR-3", Quant: QuantTemperature, Readings: 4},
			{Site: "MSK-4", Quant: QuantRadiation, Readings: 1},
			{Site: "MSK-4", Quant: QuantSalinity, Readings: 2},
		},
		MaxReadings: []MaxReading{
			{Personal: "William", Family: "Dyer", Dated: Date(1927, time.February, 8), Quant: QuantRadiation, Max: 9.82},
			{Personal: "William", Family: "Dyer", Dated: Date(1927, time.February, 8), Quant: QuantSalinity, Max: 0.13},
			{Personal: "William", Family: "Dyer", Dated: Date(1927, time.February, 10), Quant: QuantRadiation, Max: 7.80},
			{Personal: "William", Family: "Dyer", Dated: Date(1927, time.February, 10), Quant: QuantSalinity, Max: 0.09},
			{Personal: "Anderson", Family: "Lake", Dated: Date(1930, time.January, 7), Quant: QuantSalinity, Max: 0.05},
			{Personal: "Anderson", Family: "Lake", Dated: Date(1930, time.February, 26), Quant: QuantSalinity, Max: 0.10},
			{Personal: "Anderson", Family: "Lake", Dated: Date(1932, time.January, 14), Quant: QuantRadiation, Max: 1.46},
			{Personal: "Anderson", Family: "Lake", Dated: Date(1932, time.January, 14), Quant: QuantSalinity, Max: 0.21},
			{Personal: "Frank", Family: "Pabodie", Dated: Date(1930, time.January, 7), Quant: QuantRadiation, Max: 8.41},
			{Personal: "Frank", Family: "Pabodie", Dated: Date(1930, time.January, 7), Quant: QuantTemperature, Max: -21.50},
			{Personal: "Frank", Family: "Pabodie", Dated: Date(1930, time.January, 12), Quant: QuantRadiation, Max: 7.22},
			{Personal: "Frank", Family: "Pabodie", Dated: Date(1930, time.February, 26), Quant: QuantRadiation, Max: 4.35},
			{Personal: "Frank", Family: "Pabodie", Dated: Date(1930, time.February, 26), Quant: QuantTemperature, Max: -18.50},
			{Personal: "Valentina", Family: "Roerich", Dated: Date(1932, time.January, 14), Quant: QuantSalinity, Max: 22.50},
			{Personal: "Valentina", Family: "Roerich", Dated: Date(1932, time.March, 22), Quant: QuantRadiation, Max: 11.25},
		},
	}
}

package catalog

// Defaults is the fleet seeded into an empty database.
func Defaults() []Entry {
	return []Entry{
		{ID: "c90", Name: "King Air C90", Category: "Turbo-hélice", CruiseSpeedDefault: 240, HourlyRateDefault: 9500},
		{ID: "b350", Name: "King Air 350", Category: "Turbo-hélice", CruiseSpeedDefault: 300, HourlyRateDefault: 13500},
		{ID: "pc12", Name: "Pilatus PC-12", Category: "Turbo-hélice", CruiseSpeedDefault: 270, HourlyRateDefault: 11000},
		{ID: "c208", Name: "Cessna Caravan", Category: "Turbo-hélice", CruiseSpeedDefault: 180, HourlyRateDefault: 6500},
		{ID: "e50p", Name: "Phenom 100", Category: "Jato leve", CruiseSpeedDefault: 390, HourlyRateDefault: 16000},
		{ID: "e55p", Name: "Phenom 300", Category: "Jato leve", CruiseSpeedDefault: 450, HourlyRateDefault: 21000},
		{ID: "c25b", Name: "Citation CJ3", Category: "Jato leve", CruiseSpeedDefault: 415, HourlyRateDefault: 19000},
		{ID: "lj45", Name: "Learjet 45", Category: "Jato médio", CruiseSpeedDefault: 450, HourlyRateDefault: 24000},
	}
}

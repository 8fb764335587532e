package records

// AircraftRow is a row of the Aircrafts dimension table.
type AircraftRow struct {
	AircraftID               int64  `json:"Aircraft_ID"`
	RegistrationCode         string `json:"Aircraft_Registration_Code"`
	ManufacturerSerialNumber string `json:"Manufacturer_Serial_Number"`
	Model                    string `json:"Aircraft_Model"`
	ManufacturerClass        string `json:"Aircraft_Manufacturer_Class"`
}

// DateRow is a row of the flat Dates dimension table.
type DateRow struct {
	DateID   int64  `json:"Date_ID"`
	FullDate string `json:"Full_Date"`
	DayNum   int    `json:"Day_Num"`
	MonthNum int    `json:"Month_Num"`
	Year     int    `json:"Year"`
}

// MonthRow is a row of the Months dimension table.
type MonthRow struct {
	MonthID  int64 `json:"Month_ID"`
	MonthNum int   `json:"Month_Num"`
	Year     int   `json:"Year"`
}

// DayRow is a row of the snowflaked Days table, which references Months.
type DayRow struct {
	DayID   int64 `json:"Day_ID"`
	MonthID int64 `json:"Month_ID"`
	DayNum  int   `json:"Day_Num"`
}

// ReporterRow is a row of the Reporters dimension table.
type ReporterRow struct {
	ReporterID    int64  `json:"Reporter_ID"`
	ReporterClass string `json:"Reporter_Class"`
	AirportCode   string `json:"Report_Airport_Code"`
}

// FlightOperationsDaily is a row of the daily flight operations fact table.
type FlightOperationsDaily struct {
	DateID     int64   `json:"Date_ID"`
	AircraftID int64   `json:"Aircraft_ID"`
	FH         float64 `json:"FH"`
	Takeoffs   int64   `json:"Takeoffs"`
	DFC        int64   `json:"DFC"`
	CFC        int64   `json:"CFC"`
	TDM        int64   `json:"TDM"`
}

// AircraftMonthlySummary is a row of the monthly maintenance snapshot fact table.
type AircraftMonthlySummary struct {
	MonthID    int64   `json:"Month_ID"`
	AircraftID int64   `json:"Aircraft_ID"`
	ADIS       float64 `json:"ADIS"`
	ADOSS      float64 `json:"ADOSS"`
	ADOSU      float64 `json:"ADOSU"`
}

// Logbook is a row of the monthly logbook count fact table.
type Logbook struct {
	MonthID    int64 `json:"Month_ID"`
	AircraftID int64 `json:"Aircraft_ID"`
	ReporterID int64 `json:"Reporter_ID"`
	LogCount   int64 `json:"Log_Count"`
}

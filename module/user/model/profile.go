package model

import "time"

type Instrument struct {
	Instrument      string `bson:"instrument" json:"instrument"`
	YearsExperience int    `bson:"yearsExperience" json:"yearsExperience"`
	// beginner, intermediate, advanced or professional
	SkillLevel string `bson:"skillLevel" json:"skillLevel"`
}

type AvailableDays struct {
	Monday    bool `bson:"monday" json:"monday"`
	Tuesday   bool `bson:"tuesday" json:"tuesday"`
	Wednesday bool `bson:"wednesday" json:"wednesday"`
	Thursday  bool `bson:"thursday" json:"thursday"`
	Friday    bool `bson:"friday" json:"friday"`
	Saturday  bool `bson:"saturday" json:"saturday"`
	Sunday    bool `bson:"sunday" json:"sunday"`
}

type HourRange struct {
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

type SpecialDate struct {
	Date      time.Time `bson:"date" json:"date"`
	Available bool      `bson:"available" json:"available"`
}

type Availability struct {
	AvailableDays  AvailableDays `bson:"availableDays" json:"availableDays"`
	AvailableHours HourRange     `bson:"availableHours" json:"availableHours"`
	SpecialDates   []SpecialDate `bson:"specialDates" json:"specialDates"`
}

type PortfolioItem struct {
	Title        string    `bson:"title" json:"title"`
	Description  string    `bson:"description" json:"description"`
	FileURL      string    `bson:"fileUrl" json:"fileUrl"`
	ThumbnailURL string    `bson:"thumbnailUrl" json:"thumbnailUrl"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

type Credit struct {
	ProjectName string `bson:"projectName" json:"projectName"`
	Role        string `bson:"role" json:"role"`
	Artist      string `bson:"artist" json:"artist"`
	Year        int    `bson:"year" json:"year"`
	URL         string `bson:"url" json:"url"`
}

type MusicianProfile struct {
	UserID       string          `bson:"userId" json:"userId"`
	Instruments  []Instrument    `bson:"instruments" json:"instruments"`
	Genres       []string        `bson:"genres" json:"genres"`
	HourlyRate   float64         `bson:"hourlyRate" json:"hourlyRate"`
	DayRate      float64         `bson:"dayRate" json:"dayRate"`
	ProjectRate  float64         `bson:"projectRate" json:"projectRate"`
	Availability Availability    `bson:"availability" json:"availability"`
	Portfolio    []PortfolioItem `bson:"portfolio" json:"portfolio"`
	Equipment    []string        `bson:"equipment" json:"equipment"`
	Credits      []Credit        `bson:"credits" json:"credits"`
	Ratings      Ratings         `bson:"ratings" json:"ratings"`
	Verified     bool            `bson:"verified" json:"verified"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// NewMusicianProfile carries the defaults a fresh profile starts with.
func NewMusicianProfile(userID string, now time.Time) *MusicianProfile {
	return &MusicianProfile{
		UserID: userID,
		Availability: Availability{
			AvailableDays:  AvailableDays{true, true, true, true, true, true, true},
			AvailableHours: HourRange{Start: "09:00", End: "17:00"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type StudioLocation struct {
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state" json:"state"`
	Country    string `bson:"country" json:"country"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
}

type StudioInfo struct {
	Name        string         `bson:"name" json:"name"`
	Location    StudioLocation `bson:"location" json:"location"`
	Description string         `bson:"description" json:"description"`
	Website     string         `bson:"website" json:"website"`
	Equipment   []string       `bson:"equipment" json:"equipment"`
	Photos      []string       `bson:"photos" json:"photos"`
}

type PastProject struct {
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Year        int    `bson:"year" json:"year"`
	Artist      string `bson:"artist" json:"artist"`
	URL         string `bson:"url" json:"url"`
}

type ClientProfile struct {
	UserID          string        `bson:"userId" json:"userId"`
	CompanyName     string        `bson:"companyName" json:"companyName"`
	StudioInfo      StudioInfo    `bson:"studioInfo" json:"studioInfo"`
	ProjectHistory  []PastProject `bson:"projectHistory" json:"projectHistory"`
	PreferredGenres []string      `bson:"preferredGenres" json:"preferredGenres"`
	PaymentVerified bool          `bson:"paymentVerified" json:"paymentVerified"`
	Ratings         Ratings       `bson:"ratings" json:"ratings"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt" json:"updatedAt"`
}

func NewClientProfile(userID string, now time.Time) *ClientProfile {
	return &ClientProfile{UserID: userID, CreatedAt: now, UpdatedAt: now}
}

package model

import (
	"time"
)

const (
	UserCollection            = "users"
	MusicianProfileCollection = "musician_profiles"
	ClientProfileCollection   = "client_profiles"
)

// user types, also the role carried in the token
const (
	TypeMusician = "musician"
	TypeClient   = "client"
	TypeAdmin    = "admin"
)

type Location struct {
	Country string `bson:"country" json:"country"`
	City    string `bson:"city" json:"city"`
}

type SocialMedia struct {
	Facebook  string `bson:"facebook" json:"facebook"`
	Twitter   string `bson:"twitter" json:"twitter"`
	Instagram string `bson:"instagram" json:"instagram"`
	Linkedin  string `bson:"linkedin" json:"linkedin"`
}

type ContactInfo struct {
	Phone       string      `bson:"phone" json:"phone"`
	Website     string      `bson:"website" json:"website"`
	SocialMedia SocialMedia `bson:"socialMedia" json:"socialMedia"`
}

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           string      `bson:"_id" json:"id"`
	Name         string      `bson:"name" json:"name"`
	Email        string      `bson:"email" json:"email"`
	PasswordHash string      `bson:"passwordHash" json:"-"`
	UserType     string      `bson:"userType" json:"userType"`
	Location     Location    `bson:"location" json:"location"`
	Timezone     string      `bson:"timezone" json:"timezone"`
	Bio          string      `bson:"bio" json:"bio"`
	ProfileImage string      `bson:"profileImage" json:"profileImage"`
	ContactInfo  ContactInfo `bson:"contactInfo" json:"contactInfo"`
	CreatedAt    time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// Summary is the owner block embedded in project listings.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}

func ValidUserType(t string) bool {
	switch t {
	case TypeMusician, TypeClient, TypeAdmin:
		return true
	}
	return false
}

type Ratings struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

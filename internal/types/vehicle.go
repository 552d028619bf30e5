// Package types provides type definitions for structured data used throughout the inventory-poster system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// MaxImages is the maximum number of image URLs kept per listing.
const MaxImages = 10

// VehicleStatus is the inventory lifecycle state of a vehicle.
type VehicleStatus string

const (
	StatusAvailable VehicleStatus = "available"
	StatusPosted    VehicleStatus = "posted"
	StatusError     VehicleStatus = "error"
)

// PostStatus tracks whether a marketplace listing has been created for a vehicle.
type PostStatus string

const (
	PostStatusDraft  PostStatus = "draft"
	PostStatusPosted PostStatus = "posted"
)

// RawListingRecord is one listing card as extracted from a dealer page, before normalization.
type RawListingRecord struct {
	Title             string   `json:"title"`
	PriceText         string   `json:"price_text,omitempty"`
	MileageText       string   `json:"mileage_text,omitempty"`
	VINText           string   `json:"vin_text,omitempty"`
	ExteriorColorText string   `json:"exterior_color_text,omitempty"`
	ImageURLs         []string `json:"image_urls,omitempty"`
	DescriptionText   string   `json:"description_text,omitempty"`
}

// Vehicle is the canonical, normalized inventory record.
// Price is stored in minor units (cents).
type Vehicle struct {
	ID                 uuid.UUID          `json:"id"`
	OwnerID            *uuid.UUID         `json:"owner_id,omitempty"`
	Year               *int               `json:"year"`
	Make               string             `json:"make" validate:"required"`
	Model              string             `json:"model" validate:"required"`
	Trim               *string            `json:"trim"`
	VIN                *string            `json:"vin" validate:"omitempty,len=17,alphanum"`
	Price              *int64             `json:"price"`
	Mileage            *int               `json:"mileage" validate:"omitempty,gte=0"`
	ExteriorColor      StandardColor      `json:"exterior_color"`
	InteriorColor      StandardColor      `json:"interior_color"`
	Images             []string           `json:"images" validate:"max=10,dive,url"`
	Description        string             `json:"description"`
	Status             VehicleStatus      `json:"status"`
	FacebookPostStatus PostStatus         `json:"facebook_post_status"`
	ExternalPostID     *string            `json:"external_post_id,omitempty"`
	Source             string             `json:"source,omitempty"`
	Decoding           *VinDecodingResult `json:"vin_decoding,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// DisplayTitle renders "year make model" for listing titles and log lines.
func (v *Vehicle) DisplayTitle() string {
	title := v.Make + " " + v.Model
	if v.Year != nil {
		title = strconv.Itoa(*v.Year) + " " + title
	}
	return title
}

// VINValue returns the VIN or an empty string.
func (v *Vehicle) VINValue() string {
	if v.VIN == nil {
		return ""
	}
	return *v.VIN
}

// StatusUpdate is the single mutation a posting run applies to a stored vehicle.
type StatusUpdate struct {
	VehicleID      uuid.UUID     `json:"vehicle_id"`
	Status         VehicleStatus `json:"status"`
	ExternalPostID *string       `json:"external_post_id,omitempty"`
}

// VinDecodingResult holds attributes decoded from a VIN by the external decode service.
type VinDecodingResult struct {
	VIN          string    `json:"vin"`
	BodyStyle    string    `json:"body_style,omitempty"`
	FuelType     string    `json:"fuel_type,omitempty"`
	Transmission string    `json:"transmission,omitempty"`
	Engine       string    `json:"engine,omitempty"`
	VehicleType  string    `json:"vehicle_type,omitempty"`
	Drivetrain   string    `json:"drivetrain,omitempty"`
	DecodedAt    time.Time `json:"decoded_at"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}

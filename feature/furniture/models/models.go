package models

import (
	"strings"
)

// Kind tells floor items from wall items.
type Kind string

const (
	KindFloor Kind = "floor"
	KindWall  Kind = "wall"
)

// FurnitureData represents the structure of FurnitureData.json
type FurnitureData struct {
	RoomItemTypes struct {
		FurniType []FurnitureItem `json:"furnitype"`
	} `json:"roomitemtypes"`
	WallItemTypes struct {
		FurniType []FurnitureItem `json:"furnitype"`
	} `json:"wallitemtypes"`
}

// FurnitureItem represents a single furniture definition of the gamedata file.
type FurnitureItem struct {
	// Common Parameters
	ID              int    `json:"id"`
	ClassName       string `json:"classname"`
	Revision        int    `json:"revision"`
	Category        string `json:"category"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	AdURL           string `json:"adurl,omitempty"`
	OfferID         int    `json:"offerid,omitempty"`
	Buyout          bool   `json:"buyout,omitempty"`
	RentOfferID     int    `json:"rentofferid,omitempty"`
	RentBuyout      bool   `json:"rentbuyout,omitempty"`
	BC              bool   `json:"bc,omitempty"`
	ExcludedDynamic bool   `json:"excludeddynamic,omitempty"`
	CustomParams    string `json:"customparams,omitempty"`
	SpecialType     int    `json:"specialtype,omitempty"`
	FurniLine       string `json:"furniline,omitempty"`
	Environment     string `json:"environment,omitempty"`
	Rare            bool   `json:"rare,omitempty"`

	// Floor Item Specifics
	DefaultDir int `json:"defaultdir,omitempty"`
	XDim       int `json:"xdim,omitempty"`
	YDim       int `json:"ydim,omitempty"`
	PartColors struct {
		Color []string `json:"color"`
	} `json:"partcolors,omitempty"`
	CanStandOn bool `json:"canstandon,omitempty"`
	CanSitOn   bool `json:"cansiton,omitempty"`
	CanLayOn   bool `json:"canlayon,omitempty"`
}

// Validate checks if the furniture item has the minimum required fields and valid formats.
// It returns the reason of the first violation, or an empty string.
func (i FurnitureItem) Validate() string {
	if i.ID == 0 {
		return "missing id"
	}
	if i.ClassName == "" {
		return "missing classname"
	}
	if i.Name == "" {
		return "missing name"
	}
	if i.Category == "" {
		return "missing category"
	}

	// Format: base_name or base_name*color_id
	if strings.Contains(i.ClassName, "*") {
		parts := strings.Split(i.ClassName, "*")
		if len(parts) != 2 {
			return "invalid classname format: too many asterisks"
		}
		if parts[0] == "" {
			return "invalid classname format: empty base name"
		}
		if parts[1] == "" {
			return "invalid classname format: empty color index"
		}
	}

	return ""
}

// Item is the cached furniture entity. It is identified by its classname.
type Item struct {
	ClassName   string   `json:"classname"`
	SpriteID    int      `json:"sprite_id"`
	Kind        Kind     `json:"kind"`
	Revision    int      `json:"revision"`
	Category    string   `json:"category"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	FurniLine   string   `json:"furniline,omitempty"`
	XDim        int      `json:"xdim,omitempty"`
	YDim        int      `json:"ydim,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	CanStandOn  bool     `json:"can_stand_on,omitempty"`
	CanSitOn    bool     `json:"can_sit_on,omitempty"`
	CanLayOn    bool     `json:"can_lay_on,omitempty"`
	Rare        bool     `json:"rare,omitempty"`
}

// Identifier implements reconcile.Identifiable.
func (i Item) Identifier() string {
	return i.ClassName
}

// NewItem converts a gamedata definition.
func NewItem(f FurnitureItem, kind Kind) Item {
	item := Item{
		ClassName:   f.ClassName,
		SpriteID:    f.ID,
		Kind:        kind,
		Revision:    f.Revision,
		Category:    f.Category,
		Name:        f.Name,
		Description: f.Description,
		FurniLine:   f.FurniLine,
		XDim:        f.XDim,
		YDim:        f.YDim,
		CanStandOn:  f.CanStandOn,
		CanSitOn:    f.CanSitOn,
		CanLayOn:    f.CanLayOn,
		Rare:        f.Rare,
	}
	// Keep nil for no colors so cached and fresh values compare equal.
	if len(f.PartColors.Color) > 0 {
		item.Colors = append([]string(nil), f.PartColors.Color...)
	}
	return item
}

// Rejected is a gamedata definition left out of the catalogue.
type Rejected struct {
	ClassName string
	SpriteID  int
	Reason    string
}

// Items converts the whole gamedata file. Invalid definitions and repeated
// classnames are rejected; the first definition of a classname wins.
func (d FurnitureData) Items() ([]Item, []Rejected) {
	var (
		items    = make([]Item, 0, len(d.RoomItemTypes.FurniType)+len(d.WallItemTypes.FurniType))
		rejected []Rejected
		seen     = make(map[string]struct{})
	)
	add := func(defs []FurnitureItem, kind Kind) {
		for _, f := range defs {
			if reason := f.Validate(); reason != "" {
				rejected = append(rejected, Rejected{ClassName: f.ClassName, SpriteID: f.ID, Reason: reason})
				continue
			}
			if _, dup := seen[f.ClassName]; dup {
				rejected = append(rejected, Rejected{ClassName: f.ClassName, SpriteID: f.ID, Reason: "duplicate classname"})
				continue
			}
			seen[f.ClassName] = struct{}{}
			items = append(items, NewItem(f, kind))
		}
	}
	add(d.RoomItemTypes.FurniType, KindFloor)
	add(d.WallItemTypes.FurniType, KindWall)
	return items, rejected
}

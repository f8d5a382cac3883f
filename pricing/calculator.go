// Package pricing computes activity registration prices from an activity's
// price table and a participant's selection.
package pricing

import "strings"

type Key string

const (
	KeyRegistrationFee Key = "registration_fee"
	KeyRoomSharing     Key = "room_sharing"
	KeyRoomSingle      Key = "room_single"
)

type Size string

const (
	SizeS    Size = "S"
	SizeM    Size = "M"
	SizeL    Size = "L"
	SizeXL   Size = "XL"
	SizeXXL  Size = "XXL"
	SizeXXXL Size = "XXXL"
)

var Sizes = []Size{SizeS, SizeM, SizeL, SizeXL, SizeXXL, SizeXXXL}

func (s Size) Valid() bool {
	for _, v := range Sizes {
		if v == s {
			return true
		}
	}
	return false
}

// TshirtKey returns the price key for a shirt size, e.g. "tshirt_xl".
func TshirtKey(s Size) Key {
	return Key("tshirt_" + strings.ToLower(string(s)))
}

type RoomType string

const (
	RoomSharing RoomType = "sharing"
	RoomSingle  RoomType = "single"
)

func (r RoomType) Valid() bool {
	return r == RoomSharing || r == RoomSingle
}

// PriceTable maps price keys to rupiah amounts. Missing keys price at 0;
// activities that leave a price unset charge nothing for that component.
type PriceTable map[Key]int64

func (t PriceTable) Get(k Key) int64 {
	return t[k]
}

// Set stores v under k when v is non-nil, so optional price columns can be
// copied in directly.
func (t PriceTable) Set(k Key, v *int64) {
	if v != nil {
		t[k] = *v
	}
}

type Selection struct {
	TshirtSize        Size      `json:"tshirt_size"`
	NeedAccommodation bool      `json:"need_accommodation"`
	RoomType          *RoomType `json:"room_type,omitempty"`
}

type Breakdown struct {
	BaseFee            int64 `json:"base_fee"`
	TshirtPrice        int64 `json:"tshirt_price"`
	AccommodationPrice int64 `json:"accommodation_price"`
	Total              int64 `json:"total"`
}

// Compute never fails: unknown sizes and unset prices contribute 0.
func Compute(table PriceTable, sel Selection) Breakdown {
	b := Breakdown{
		BaseFee:     table.Get(KeyRegistrationFee),
		TshirtPrice: table.Get(TshirtKey(sel.TshirtSize)),
	}
	if sel.NeedAccommodation {
		if sel.RoomType != nil && *sel.RoomType == RoomSingle {
			b.AccommodationPrice = table.Get(KeyRoomSingle)
		} else {
			b.AccommodationPrice = table.Get(KeyRoomSharing)
		}
	}
	b.Total = b.BaseFee + b.TshirtPrice + b.AccommodationPrice
	return b
}

// Normalize returns the selection as it is persisted: no room type without
// accommodation, and sharing when accommodation is requested without one.
func Normalize(sel Selection) Selection {
	if !sel.NeedAccommodation {
		sel.RoomType = nil
		return sel
	}
	if sel.RoomType == nil || !sel.RoomType.Valid() {
		rt := RoomSharing
		sel.RoomType = &rt
	}
	return sel
}

package service

import "github.com/Kerhoff/ResidentHub/internal/models"

// RsvpSummary aggregates the orders of one event
type RsvpSummary struct {
	TotalRsvps    int           `json:"totalRsvps"`
	ResidentRsvps int           `json:"residentRsvps"`
	GuestRsvps    int           `json:"guestRsvps"`
	TotalPlates   int           `json:"totalPlates"`
	TotalAmount   int64         `json:"totalAmount"`
	PaidCount     int           `json:"paidCount"`
	UnpaidCount   int           `json:"unpaidCount"`
	PaidAmount    int64         `json:"paidAmount"`
	UnpaidAmount  int64         `json:"unpaidAmount"`
	AttendedCount int           `json:"attendedCount"`
	Items         []ItemSummary `json:"items"`
}

// ItemSummary is the demand for one menu item
type ItemSummary struct {
	MenuItemID    int64  `json:"menuItemId"`
	Name          string `json:"name"`
	PricePerPlate int64  `json:"pricePerPlate"`
	Plates        int    `json:"plates"`
	Amount        int64  `json:"amount"`
}

// SummarizeRsvps recomputes event totals from every order line
func SummarizeRsvps(cfg *models.EventConfig, rsvps []*models.Rsvp, guests []*models.GuestRsvp) RsvpSummary {
	sum := RsvpSummary{Items: make([]ItemSummary, 0, len(cfg.MenuItems))}
	index := make(map[int64]int, len(cfg.MenuItems))
	for _, m := range cfg.MenuItems {
		index[m.ID] = len(sum.Items)
		sum.Items = append(sum.Items, ItemSummary{MenuItemID: m.ID, Name: m.Name, PricePerPlate: m.PricePerPlate})
	}

	add := func(items []models.RsvpItem, paid, attended bool) {
		var amount int64
		for _, it := range items {
			sum.TotalPlates += it.Plates
			amount += it.Amount()
			i, ok := index[it.MenuItemID]
			if !ok {
				i = len(sum.Items)
				index[it.MenuItemID] = i
				sum.Items = append(sum.Items, ItemSummary{MenuItemID: it.MenuItemID, Name: it.Name, PricePerPlate: it.PricePerPlate})
			}
			sum.Items[i].Plates += it.Plates
			sum.Items[i].Amount += it.Amount()
		}
		sum.TotalAmount += amount
		if paid {
			sum.PaidCount++
			sum.PaidAmount += amount
		} else {
			sum.UnpaidCount++
			sum.UnpaidAmount += amount
		}
		if attended {
			sum.AttendedCount++
		}
	}

	for _, r := range rsvps {
		sum.ResidentRsvps++
		add(r.Items, r.Paid, r.Attended)
	}
	for _, g := range guests {
		sum.GuestRsvps++
		add(g.Items, g.Paid, g.Attended)
	}
	sum.TotalRsvps = sum.ResidentRsvps + sum.GuestRsvps
	return sum
}

// SportsSummary aggregates the registrations of one sports event
type SportsSummary struct {
	Registrations int                  `json:"registrations"`
	Participants  int                  `json:"participants"`
	TotalFee      int64                `json:"totalFee"`
	PaidCount     int                  `json:"paidCount"`
	UnpaidCount   int                  `json:"unpaidCount"`
	PaidFee       int64                `json:"paidFee"`
	UnpaidFee     int64                `json:"unpaidFee"`
	Sports        []SportSummary       `json:"sports"`
	AgeCategories []AgeCategorySummary `json:"ageCategories"`
}

// SportSummary counts the entries of one sport
type SportSummary struct {
	SportItemID  int64  `json:"sportItemId"`
	Name         string `json:"name"`
	Fee          int64  `json:"fee"`
	Participants int    `json:"participants"`
	Amount       int64  `json:"amount"`
}

// AgeCategorySummary counts participants of one age category
type AgeCategorySummary struct {
	Category     string `json:"category"`
	Participants int    `json:"participants"`
}

// SummarizeSports recomputes sports totals from every participant
func SummarizeSports(cfg *models.SportsConfig, regs []*models.SportsRegistration) SportsSummary {
	sum := SportsSummary{
		Sports:        make([]SportSummary, 0, len(cfg.SportItems)),
		AgeCategories: make([]AgeCategorySummary, 0, len(cfg.AgeCategories)),
	}
	sportIndex := make(map[int64]int, len(cfg.SportItems))
	for _, it := range cfg.SportItems {
		sportIndex[it.ID] = len(sum.Sports)
		sum.Sports = append(sum.Sports, SportSummary{SportItemID: it.ID, Name: it.Name, Fee: it.Fee})
	}
	ageIndex := make(map[string]int, len(cfg.AgeCategories))
	for _, c := range cfg.AgeCategories {
		ageIndex[c] = len(sum.AgeCategories)
		sum.AgeCategories = append(sum.AgeCategories, AgeCategorySummary{Category: c})
	}

	for _, reg := range regs {
		sum.Registrations++
		fee := reg.Fee(cfg)
		sum.TotalFee += fee
		if reg.Paid {
			sum.PaidCount++
			sum.PaidFee += fee
		} else {
			sum.UnpaidCount++
			sum.UnpaidFee += fee
		}

		for _, p := range reg.Participants {
			sum.Participants++
			i, ok := ageIndex[p.AgeCategory]
			if !ok {
				i = len(sum.AgeCategories)
				ageIndex[p.AgeCategory] = i
				sum.AgeCategories = append(sum.AgeCategories, AgeCategorySummary{Category: p.AgeCategory})
			}
			sum.AgeCategories[i].Participants++

			for _, id := range p.SportItemIDs {
				if j, ok := sportIndex[id]; ok {
					sum.Sports[j].Participants++
					sum.Sports[j].Amount += sum.Sports[j].Fee
				}
			}
		}
	}
	return sum
}

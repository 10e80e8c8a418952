// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package relay

import (
	"sort"

	"github.com/tomtom215/smsrelay/internal/models"
)

// DefaultDiffFields are the columns compared during reconciliation,
// in report order.
var DefaultDiffFields = []string{"To", "Body", "Status", "Price"}

// Diff compares the store's sent rows against the provider's log,
// keyed by Sid. Sids present on only one side are reported as such;
// Sids on both sides are compared field by field. The health score is
// the fraction of provider records that match exactly, so a store
// missing rows scores low even when every stored row agrees.
func Diff(storeRows []models.SentMessage, providerMsgs []models.SentMessage) *models.ReconciliationReport {
	byStoreSid := make(map[string]*models.SentMessage, len(storeRows))
	for i := range storeRows {
		byStoreSid[storeRows[i].Sid] = &storeRows[i]
	}
	byProviderSid := make(map[string]*models.SentMessage, len(providerMsgs))
	for i := range providerMsgs {
		byProviderSid[providerMsgs[i].Sid] = &providerMsgs[i]
	}

	report := &models.ReconciliationReport{
		StoreCount:     len(byStoreSid),
		ProviderCount:  len(byProviderSid),
		OnlyInStore:    []string{},
		OnlyInProvider: []string{},
		Mismatches:     []models.Mismatch{},
	}

	for sid := range byStoreSid {
		if _, ok := byProviderSid[sid]; !ok {
			report.OnlyInStore = append(report.OnlyInStore, sid)
		}
	}
	for sid, pm := range byProviderSid {
		sm, ok := byStoreSid[sid]
		if !ok {
			report.OnlyInProvider = append(report.OnlyInProvider, sid)
			continue
		}

		diffs := compareFields(sm, pm)
		if len(diffs) == 0 {
			report.MatchCount++
		} else {
			report.Mismatches = append(report.Mismatches, models.Mismatch{Sid: sid, Diffs: diffs})
		}
	}

	// Deterministic output regardless of map iteration order.
	sort.Strings(report.OnlyInStore)
	sort.Strings(report.OnlyInProvider)
	sort.Slice(report.Mismatches, func(i, j int) bool {
		return report.Mismatches[i].Sid < report.Mismatches[j].Sid
	})

	denom := report.ProviderCount
	if denom < 1 {
		denom = 1
	}
	report.HealthScore = float64(report.MatchCount) / float64(denom)

	return report
}

func compareFields(sm, pm *models.SentMessage) []models.FieldDiff {
	var diffs []models.FieldDiff
	for _, field := range DefaultDiffFields {
		sv := fieldValue(sm, field)
		pv := fieldValue(pm, field)
		if sv != pv {
			diffs = append(diffs, models.FieldDiff{Field: field, Store: sv, Provider: pv})
		}
	}
	return diffs
}

func fieldValue(m *models.SentMessage, field string) string {
	switch field {
	case "To":
		return m.To
	case "Body":
		return m.Body
	case "Status":
		return m.Status
	case "Price":
		if m.Price == nil {
			return ""
		}
		return *m.Price
	default:
		return ""
	}
}

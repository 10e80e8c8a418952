// SMS Relay - Secured SMS relay between a telephony provider and a REST datastore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/smsrelay

package api

import (
	"encoding/xml"
	"net/http"

	"github.com/tomtom215/smsrelay/internal/logging"
)

// twimlResponse is the XML document the provider expects back from a
// webhook. An empty Response means "no reply"; a Message element asks
// the provider to send that text back to the sender.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// respondTwiML writes a TwiML document. Webhooks always answer 200;
// anything else makes the provider retry the delivery.
func respondTwiML(w http.ResponseWriter, reply string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	out, err := xml.Marshal(twimlResponse{Message: reply})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to encode TwiML response")
		return
	}
	if _, err := w.Write(append([]byte(xml.Header), out...)); err != nil {
		logging.Error().Err(err).Msg("Failed to write TwiML response")
	}
}

// Package view turns a board snapshot into what the page shows.
package view

import (
	"time"

	"github.com/waveportal/backend/internal/models"
	"github.com/waveportal/backend/internal/waveboard"
)

const (
	InstallWalletMessage = "Wallet provider not detected. Please install it first."
	ConnectFirstMessage  = "Connect your wallet first to see other's waves!"
	NoOwnWavesMessage    = "Aww, it would be nice if you want to wave me."
	OwnWavesMessage      = "Thank you for waving me."
)

type Page struct {
	Banner        string        `json:"banner,omitempty"`
	ConnectPrompt string        `json:"connect_prompt,omitempty"`
	ShowConnect   bool          `json:"show_connect"`
	Connected     bool          `json:"connected"`
	Account       string        `json:"account,omitempty"`
	Loading       bool          `json:"loading"`
	Count         int           `json:"count"`
	Waves         []models.Wave `json:"waves"`
	MyWaves       []models.Wave `json:"my_waves"`
	MyWavesTitle  string        `json:"my_waves_title,omitempty"`
	Submitting    bool          `json:"submitting"`
	Pending       string        `json:"pending_message"`
	AsOf          time.Time     `json:"as_of"`
}

// Build derives the page from a snapshot. Lists are only exposed once an
// account is connected.
func Build(s waveboard.State, now time.Time) Page {
	p := Page{
		ShowConnect: s.ProviderInstalled && s.Account == "",
		Connected:   s.Account != "",
		Account:     s.Account,
		Loading:     s.Fetching,
		Submitting:  s.Submitting,
		Pending:     s.PendingMessage,
		AsOf:        now,
		Waves:       make([]models.Wave, 0),
		MyWaves:     make([]models.Wave, 0),
	}
	if !s.ProviderInstalled {
		p.Banner = InstallWalletMessage
	}
	if !p.Connected {
		p.ConnectPrompt = ConnectFirstMessage
		return p
	}

	p.Count = len(s.Waves)
	p.Waves = s.Waves
	p.MyWaves = models.FilterBySender(s.Waves, s.Account)
	if len(p.MyWaves) == 0 {
		p.MyWavesTitle = NoOwnWavesMessage
	} else {
		p.MyWavesTitle = OwnWavesMessage
	}
	return p
}

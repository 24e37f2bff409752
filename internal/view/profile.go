package view

import (
	"sync"

	"github.com/alfredjeanlab/taskboard/internal/changebus"
	"github.com/alfredjeanlab/taskboard/internal/model"
)

// ProfileView holds the session user's own profile.
type ProfileView struct {
	mu      sync.RWMutex
	profile *model.Profile
}

func NewProfileView() *ProfileView {
	return &ProfileView{}
}

// Set replaces the held profile; nil clears it.
func (v *ProfileView) Set(p *model.Profile) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.profile = p
}

// Profile returns the held profile, or nil.
func (v *ProfileView) Profile() *model.Profile {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.profile
}

// Apply takes profile_change events for the held user.
func (v *ProfileView) Apply(ev changebus.Event) {
	if ev.Kind != changebus.KindProfileChange {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.profile == nil || v.profile.ID == ev.Profile.ID {
		v.profile = ev.Profile
	}
}

func (v *ProfileView) Attach(bus *changebus.Bus) *changebus.Handle {
	return bus.Subscribe(v.Apply)
}

package resource

// This file implements the diff/apply pattern spec.md §4.1/§9 requires for
// every mutable resource type: a pure `Diff(old, new) -> update` plus a
// pure `Apply(&self, update)`, replacing a single ad-hoc in-place mutator.
// Together they satisfy P2 (a + (b-a) == b, a + (a-a) == a) and make P3
// (exactly one event per successful mutation, zero for a no-op) testable:
// every update type carries an IsEmpty() used by the store to decide
// whether to emit an event at all.

// LightUpdate is the diff record for Light. Dimming, ColorTemperature,
// Color, Gradient and EffectsV2 are double-wrapped: a nil outer pointer
// means "unchanged", a non-nil outer pointer wrapping a nil inner value
// means "explicitly cleared" — otherwise clearing one of these already-
// nilable fields back to nil would be indistinguishable from a no-op and
// Apply would never propagate it.
type LightUpdate struct {
	Metadata         *Metadata
	On               *On
	Dimming          **Dimming
	ColorTemperature **ColorTemperature
	Color            **Color
	Gradient         **Gradient
	Mode             *LightMode
	EffectsV2        *map[string]any
}

// IsEmpty reports whether the update changes nothing.
func (u LightUpdate) IsEmpty() bool {
	return u.Metadata == nil && u.On == nil && u.Dimming == nil &&
		u.ColorTemperature == nil && u.Color == nil && u.Gradient == nil &&
		u.Mode == nil && u.EffectsV2 == nil
}

// DiffLight returns the minimal set of fields that changed between old and
// new.
func DiffLight(old, new Light) LightUpdate {
	var u LightUpdate
	if old.Metadata != new.Metadata {
		m := new.Metadata
		u.Metadata = &m
	}
	if old.On != new.On {
		o := new.On
		u.On = &o
	}
	if !equalPtr(old.Dimming, new.Dimming) {
		d := new.Dimming
		u.Dimming = &d
	}
	if !equalPtr(old.ColorTemperature, new.ColorTemperature) {
		c := new.ColorTemperature
		u.ColorTemperature = &c
	}
	if !equalPtr(old.Color, new.Color) {
		c := new.Color
		u.Color = &c
	}
	if !equalGradientPtr(old.Gradient, new.Gradient) {
		g := new.Gradient
		u.Gradient = &g
	}
	if old.Mode != new.Mode {
		m := new.Mode
		u.Mode = &m
	}
	if !equalMap(old.EffectsV2, new.EffectsV2) {
		e := new.EffectsV2
		u.EffectsV2 = &e
	}
	return u
}

// Apply mutates l in place according to u.
func (l *Light) Apply(u LightUpdate) {
	if u.Metadata != nil {
		l.Metadata = *u.Metadata
	}
	if u.On != nil {
		l.On = *u.On
	}
	if u.Dimming != nil {
		l.Dimming = *u.Dimming
	}
	if u.ColorTemperature != nil {
		l.ColorTemperature = *u.ColorTemperature
		// setting a color-temperature clears any active xy color, matching
		// the reference backend's AddAssign<&LightUpdate> for Light.
		l.Color = nil
	}
	if u.Color != nil {
		l.Color = *u.Color
		l.ColorTemperature = nil
	}
	if u.Gradient != nil {
		l.Gradient = *u.Gradient
	}
	if u.Mode != nil {
		l.Mode = *u.Mode
	}
	if u.EffectsV2 != nil {
		l.EffectsV2 = *u.EffectsV2
	}
}

// GroupedLightUpdate is the diff record for GroupedLight. Dimming is
// double-wrapped for the same reason as LightUpdate.Dimming.
type GroupedLightUpdate struct {
	On      *On
	Dimming **Dimming
}

// IsEmpty reports whether the update changes nothing.
func (u GroupedLightUpdate) IsEmpty() bool {
	return u.On == nil && u.Dimming == nil
}

// DiffGroupedLight returns the minimal changed-field set.
func DiffGroupedLight(old, new GroupedLight) GroupedLightUpdate {
	var u GroupedLightUpdate
	if old.On != new.On {
		o := new.On
		u.On = &o
	}
	if !equalPtr(old.Dimming, new.Dimming) {
		d := new.Dimming
		u.Dimming = &d
	}
	return u
}

// Apply mutates g in place according to u.
func (g *GroupedLight) Apply(u GroupedLightUpdate) {
	if u.On != nil {
		g.On = *u.On
	}
	if u.Dimming != nil {
		g.Dimming = *u.Dimming
	}
}

// RoomUpdate is the diff record for Room.
type RoomUpdate struct {
	Metadata *Metadata
	Children *[]Link
}

// IsEmpty reports whether the update changes nothing.
func (u RoomUpdate) IsEmpty() bool {
	return u.Metadata == nil && u.Children == nil
}

// DiffRoom returns the minimal changed-field set.
func DiffRoom(old, new Room) RoomUpdate {
	var u RoomUpdate
	if old.Metadata != new.Metadata {
		m := new.Metadata
		u.Metadata = &m
	}
	if !equalLinkSet(old.Children, new.Children) {
		c := new.Children
		u.Children = &c
	}
	return u
}

// Apply mutates r in place according to u.
func (r *Room) Apply(u RoomUpdate) {
	if u.Metadata != nil {
		r.Metadata = *u.Metadata
	}
	if u.Children != nil {
		r.Children = *u.Children
	}
}

// SceneUpdate is the diff record for Scene. Palette is double-wrapped
// for the same reason as LightUpdate.Dimming.
type SceneUpdate struct {
	Actions *[]SceneAction
	Status  *SceneStatus
	Palette *map[string]any
}

// IsEmpty reports whether the update changes nothing.
func (u SceneUpdate) IsEmpty() bool {
	return u.Actions == nil && u.Status == nil && u.Palette == nil
}

// DiffScene returns the minimal changed-field set.
func DiffScene(old, new Scene) SceneUpdate {
	var u SceneUpdate
	if !equalActions(old.Actions, new.Actions) {
		a := new.Actions
		u.Actions = &a
	}
	if !equalSceneStatus(old.Status, new.Status) {
		s := new.Status
		u.Status = &s
	}
	if !equalMap(old.Palette, new.Palette) {
		p := new.Palette
		u.Palette = &p
	}
	return u
}

// Apply mutates s in place according to u.
func (s *Scene) Apply(u SceneUpdate) {
	if u.Actions != nil {
		s.Actions = *u.Actions
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Palette != nil {
		s.Palette = *u.Palette
	}
}

// BridgeHomeUpdate is the diff record for BridgeHome.
type BridgeHomeUpdate struct {
	Children *[]Link
}

// IsEmpty reports whether the update changes nothing.
func (u BridgeHomeUpdate) IsEmpty() bool { return u.Children == nil }

// DiffBridgeHome returns the minimal changed-field set.
func DiffBridgeHome(old, new BridgeHome) BridgeHomeUpdate {
	var u BridgeHomeUpdate
	if !equalLinkSet(old.Children, new.Children) {
		c := new.Children
		u.Children = &c
	}
	return u
}

// Apply mutates b in place according to u.
func (b *BridgeHome) Apply(u BridgeHomeUpdate) {
	if u.Children != nil {
		b.Children = *u.Children
	}
}

// EntertainmentConfigurationUpdate is the diff record for
// EntertainmentConfiguration.
type EntertainmentConfigurationUpdate struct {
	Channels  *[]EntertainmentChannel
	Streaming *bool
}

// IsEmpty reports whether the update changes nothing.
func (u EntertainmentConfigurationUpdate) IsEmpty() bool {
	return u.Channels == nil && u.Streaming == nil
}

// DiffEntertainmentConfiguration returns the minimal changed-field set.
func DiffEntertainmentConfiguration(old, new EntertainmentConfiguration) EntertainmentConfigurationUpdate {
	var u EntertainmentConfigurationUpdate
	if !equalChannels(old.Channels, new.Channels) {
		c := new.Channels
		u.Channels = &c
	}
	if old.Streaming != new.Streaming {
		s := new.Streaming
		u.Streaming = &s
	}
	return u
}

// Apply mutates e in place according to u.
func (e *EntertainmentConfiguration) Apply(u EntertainmentConfigurationUpdate) {
	if u.Channels != nil {
		e.Channels = *u.Channels
	}
	if u.Streaming != nil {
		e.Streaming = *u.Streaming
	}
}

// ZigbeeConnectivityUpdate is the diff record for ZigbeeConnectivity.
type ZigbeeConnectivityUpdate struct {
	Status         *ZigbeeConnectivityStatus
	NetworkAddress *uint16
}

// IsEmpty reports whether the update changes nothing.
func (u ZigbeeConnectivityUpdate) IsEmpty() bool {
	return u.Status == nil && u.NetworkAddress == nil
}

// DiffZigbeeConnectivity returns the minimal changed-field set.
func DiffZigbeeConnectivity(old, new ZigbeeConnectivity) ZigbeeConnectivityUpdate {
	var u ZigbeeConnectivityUpdate
	if old.Status != new.Status {
		s := new.Status
		u.Status = &s
	}
	if old.NetworkAddress != new.NetworkAddress {
		n := new.NetworkAddress
		u.NetworkAddress = &n
	}
	return u
}

// Apply mutates z in place according to u.
func (z *ZigbeeConnectivity) Apply(u ZigbeeConnectivityUpdate) {
	if u.Status != nil {
		z.Status = *u.Status
	}
	if u.NetworkAddress != nil {
		z.NetworkAddress = *u.NetworkAddress
	}
}

// --- comparison helpers ---

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalGradientPtr(a, b *Gradient) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Mode != b.Mode || len(a.Points) != len(b.Points) {
		return false
	}
	for i := range a.Points {
		if a.Points[i] != b.Points[i] {
			return false
		}
	}
	return true
}

func equalLinkSet(a, b []Link) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[Link]bool, len(a))
	for _, l := range a {
		seen[l] = true
	}
	for _, l := range b {
		if !seen[l] {
			return false
		}
	}
	return true
}

func equalActions(a, b []SceneAction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Target != b[i].Target {
			return false
		}
		if !equalActionPartial(a[i].Action, b[i].Action) {
			return false
		}
	}
	return true
}

func equalActionPartial(a, b SceneActionPartial) bool {
	return equalPtr(a.On, b.On) &&
		equalPtr(a.Dimming, b.Dimming) &&
		equalPtr(a.Color, b.Color) &&
		equalPtr(a.ColorTemperature, b.ColorTemperature) &&
		equalMap(a.Effects, b.Effects)
}

func equalChannels(a, b []EntertainmentChannel) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ChannelID != b[i].ChannelID || len(a[i].Members) != len(b[i].Members) {
			return false
		}
		for j := range a[i].Members {
			if a[i].Members[j] != b[i].Members[j] {
				return false
			}
		}
	}
	return true
}

func equalSceneStatus(a, b SceneStatus) bool {
	return a.Active == b.Active && equalPtr(a.LastRecall, b.LastRecall)
}

func equalMap(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || bv != v {
			return false
		}
	}
	return true
}

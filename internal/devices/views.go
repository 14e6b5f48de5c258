package devices

// View is a materialized subset of the catalog holding the records that
// satisfy one role, in catalog order.
type View struct {
	role    Role
	members []*Device
}

func newView(role Role) *View {
	return &View{role: role}
}

// Role returns the role the view filters on.
func (v *View) Role() Role { return v.role }

// Len returns the number of members.
func (v *View) Len() int { return len(v.members) }

// Devices returns a copy of the member list.
func (v *View) Devices() []*Device {
	out := make([]*Device, len(v.members))
	copy(out, v.members)

	return out
}

// FindByLabel returns the first member whose label equals label exactly.
func (v *View) FindByLabel(label string) *Device {
	for _, d := range v.members {
		if d.Label == label {
			return d
		}
	}

	return nil
}

// Get returns the member with the given id.
func (v *View) Get(id string) *Device {
	for _, d := range v.members {
		if d.DeviceID == id {
			return d
		}
	}

	return nil
}

func (v *View) rebuild(all []*Device) {
	members := make([]*Device, 0, len(all))

	for _, d := range all {
		if d.Matches(v.role) {
			members = append(members, d)
		}
	}

	v.members = members
}

// ClassifiedViews groups the camera, microphone and speaker views.
type ClassifiedViews struct {
	Cameras     *View
	Microphones *View
	Speakers    *View
}

// NewClassifiedViews creates empty views.
func NewClassifiedViews() *ClassifiedViews {
	return &ClassifiedViews{
		Cameras:     newView(RoleCamera),
		Microphones: newView(RoleMicrophone),
		Speakers:    newView(RoleSpeaker),
	}
}

// Rebuild recomputes every view from the catalog.
func (cv *ClassifiedViews) Rebuild(c *Catalog) {
	all := c.Devices()

	cv.Cameras.rebuild(all)
	cv.Microphones.rebuild(all)
	cv.Speakers.rebuild(all)
}

// ByRole returns the view for role, or nil for an unknown role.
func (cv *ClassifiedViews) ByRole(role Role) *View {
	switch role {
	case RoleCamera:
		return cv.Cameras
	case RoleMicrophone:
		return cv.Microphones
	case RoleSpeaker:
		return cv.Speakers
	default:
		return nil
	}
}

package devices

// Kind is the canonical device kind.
type Kind string

// Canonical kinds.
const (
	KindAudioInput  Kind = "audioinput"
	KindAudioOutput Kind = "audiooutput"
	KindVideoInput  Kind = "videoinput"
)

// Legacy kind tokens reported by older hosts.
const (
	legacyKindAudio = "audio"
	legacyKindVideo = "video"
)

// Generic names used while a device has no label.
const (
	GenericCameraName     = "Generic Camera"
	GenericMicrophoneName = "Generic Microphone"
	GenericSpeakerName    = "Generic Speaker"
)

// Placeholder device ids seeded before the first enumeration.
const (
	PlaceholderAudioID = "default-audio"
	PlaceholderVideoID = "default-video"
)

// Role selects one of the classified views.
type Role string

// Device roles.
const (
	RoleCamera     Role = "camera"
	RoleMicrophone Role = "microphone"
	RoleSpeaker    Role = "speaker"
)

// Roles lists all roles in display order.
func Roles() []Role {
	return []Role{RoleCamera, RoleMicrophone, RoleSpeaker}
}

// Refresh trigger reasons.
const (
	TriggerStartup    = "startup"
	TriggerTopology   = "topology"
	TriggerPermission = "permission"
	TriggerManual     = "manual"
)

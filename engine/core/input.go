package core

// Key codes crossing the platform boundary. Values match the GLFW key tokens
// so the platform layer can forward them without a translation table.
type Key uint16

const (
	KEY_ESCAPE Key = 256
	KEY_MINUS  Key = 45
	KEY_0      Key = 48
	KEY_1      Key = 49
	KEY_2      Key = 50
	KEY_3      Key = 51
	KEY_4      Key = 52
	KEY_5      Key = 53
	KEY_EQUAL  Key = 61
	KEY_P      Key = 80
	KEY_R      Key = 82
)

type Button uint8

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
)

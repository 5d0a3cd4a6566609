package config

import "github.com/tauraamui/dragondoorbell/pkg/configdef"

type defaultSettingKey uint

const (
	CAMERA             defaultSettingKey = 0x0
	TRIGGER            defaultSettingKey = 0x1
	DISPLAY            defaultSettingKey = 0x2
	BUTTONPOLLINTERVAL defaultSettingKey = 0x3
	KEYPOLLINTERVAL    defaultSettingKey = 0x4
	FORWARDTIMEOUT     defaultSettingKey = 0x5
)

var defaultSettings = map[defaultSettingKey]interface{}{
	CAMERA: configdef.Camera{
		Title:      "Front Door",
		Address:    "0",
		Backend:    "opencv",
		Width:      640,
		Height:     480,
		Format:     "jpeg",
		BufferSize: 1,
	},
	TRIGGER: configdef.Trigger{
		Terminal: true,
		Button: configdef.Button{
			Pin:                17,
			PullUp:             true,
			PollIntervalMillis: 20,
		},
	},
	DISPLAY: configdef.Display{
		Enabled:               true,
		Title:                 "Front Door",
		Width:                 640,
		Height:                480,
		KeyPollIntervalMillis: 10,
	},
	BUTTONPOLLINTERVAL: 20,
	KEYPOLLINTERVAL:    10,
	FORWARDTIMEOUT:     30,
}

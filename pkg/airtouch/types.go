package airtouch

// Power state of the AC unit, as reported by the AirTouch 3 console.
const (
	PowerOff = 0
	PowerOn  = 1
)

// Zone status values. A zone is either fully closed or open (with its damper
// at FanValue percent).
const (
	ZoneOff = 0
	ZoneOn  = 1
)

// Target temperatures the unit accepts. SetZoneTemperature reports
// NotTemperatureControlled for zones without temperature control.
const (
	MinTargetTemperature     = 16
	MaxTargetTemperature     = 32
	NotTemperatureControlled = 0
)

// Mode is the operating mode of the AC unit
type Mode int

const (
	ModeAuto Mode = iota
	ModeHeat
	ModeDry
	ModeFan
	ModeCool
)

var modeNames = []string{"auto", "heat", "dry", "fan", "cool"}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// FanMode is the fan speed of the AC unit
type FanMode int

const (
	FanQuiet FanMode = iota
	FanLow
	FanMedium
	FanHigh
	FanPowerful
	FanAuto
)

var fanModeNames = []string{"quiet", "low", "medium", "high", "powerful", "auto"}

func (f FanMode) String() string {
	if f >= 0 && int(f) < len(fanModeNames) {
		return fanModeNames[f]
	}
	return "unknown"
}

// Aircon is the state of the AirTouch 3 unit: aggregate power, mode, fan mode
// and the zones it controls. The zone set is stable for the duration of a
// session.
type Aircon struct {
	ID                 int     `json:"id"`
	Name               string  `json:"name"`
	Power              int     `json:"power"`
	Mode               Mode    `json:"mode"`
	FanMode            FanMode `json:"fanMode"`
	RoomTemperature    float64 `json:"roomTemperature"`
	DesiredTemperature int     `json:"desiredTemperature"`
	Zones              []Zone  `json:"zones"`
}

// IsOn returns true if the unit's compressor is on
func (a Aircon) IsOn() bool {
	return a.Power == PowerOn
}

// GetZone looks up a zone by ID
func (a Aircon) GetZone(id int) (Zone, bool) {
	for _, zone := range a.Zones {
		if zone.ID == id {
			return zone, true
		}
	}
	return Zone{}, false
}

// GetZoneByName looks up a zone by name
func (a Aircon) GetZoneByName(name string) (Zone, bool) {
	for _, zone := range a.Zones {
		if zone.Name == name {
			return zone, true
		}
	}
	return Zone{}, false
}

// Zone is one independently controllable duct of the ducted system
type Zone struct {
	ID                 int      `json:"id"`
	Name               string   `json:"name"`
	Status             int      `json:"status"`
	DesiredTemperature int      `json:"desiredTemperature"`
	FanValue           int      `json:"fanValue"`
	Sensors            []Sensor `json:"sensors"`
}

// IsOn returns true if the zone's damper is open
func (z Zone) IsOn() bool {
	return z.Status == ZoneOn
}

// TemperatureControlled returns true if the zone has its own temperature set-point
func (z Zone) TemperatureControlled() bool {
	return z.DesiredTemperature != NotTemperatureControlled
}

// Temperature returns the zone's current temperature, taken from the first
// sensor with a reading. ok is false if the zone has no sensors, or none of
// them has reported a temperature yet.
func (z Zone) Temperature() (float64, bool) {
	for _, sensor := range z.Sensors {
		if sensor.Temperature != nil {
			return *sensor.Temperature, true
		}
	}
	return 0, false
}

// Sensor is a temperature sensor attached to a zone. Temperature is nil until
// the console has received a reading from the sensor.
type Sensor struct {
	ID          int      `json:"id"`
	Temperature *float64 `json:"temperature"`
	LowBattery  bool     `json:"lowBattery"`
}

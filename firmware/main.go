//go:build tinygo

package main

import (
	"context"
	"machine"
	"time"

	"github.com/calvinmclean/coilwinder"
	"github.com/calvinmclean/coilwinder/firmware/commands"
	"github.com/calvinmclean/coilwinder/firmware/device"
	"github.com/calvinmclean/coilwinder/winding"

	"tinygo.org/x/drivers/easystepper"
)

// useTraverse selects the lead-screw guide instead of the servo
const useTraverse = false

func main() {
	stepper := device.NewStepper(device.StepperConfig{
		Step:   machine.GP2,
		Dir:    machine.GP3,
		Enable: machine.GP4,
	})

	g, err := newGuide()
	if err != nil {
		panic(err)
	}

	hw := commands.Hardware{
		Stepper:           stepper,
		Guide:             g,
		Store:             device.NewFlashStore(0),
		PulsesPerRotation: coilwinder.DefaultPulsesPerRotation,
	}

	w := commands.New(hw, machine.Serial,
		commands.WithLogger(device.NewPrintLogger(device.LevelWarn)),
		commands.WithReset(machine.CPUReset),
		commands.WithIdleSleep(100*time.Microsecond),
	)

	err = commands.NewLoop(w, machine.Serial).Run(context.Background())
	if err != nil {
		println("control loop stopped:", err.Error())
	}
}

func newGuide() (winding.Guide, error) {
	if useTraverse {
		return device.NewTraverseGuide(device.TraverseConfig{
			Stepper: easystepper.DeviceConfig{
				Pin1: machine.GP16, Pin2: machine.GP17, Pin3: machine.GP18, Pin4: machine.GP19,
				StepCount: 4096,
				RPM:       10,
				Mode:      easystepper.ModeEight,
			},
			// 2 mm lead screw, 180 degrees spans 9 mm of bobbin
			StepsPerDegree: traverseStepsPerDegree(4096, 2, 9),
		})
	}

	return device.NewServoGuide(device.ServoConfig{
		PWM: machine.PWM3,
		Pin: machine.GP22,
	})
}

// traverseStepsPerDegree maps the 0-180 guide range onto travelMM of carriage movement
func traverseStepsPerDegree(stepsPerRev int, leadMM, travelMM float32) float32 {
	stepsPerMM := float32(stepsPerRev) / leadMM
	return stepsPerMM * travelMM / 180
}

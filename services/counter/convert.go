package counter

import (
	"time"

	"icmd-go/drivers/icmd"
	"icmd-go/types"
)

func counterValue(c icmd.Count, st icmd.DeviceStatus, ts int64) types.CounterValue {
	return types.CounterValue{
		Layout:  c.Layout().String(),
		Counts:  icmd.Values(c),
		Warning: st.Warning == icmd.Warning,
		Error:   st.Error == icmd.Error,
		TS:      ts,
	}
}

func counterInfo(cfg icmd.CounterConfig, busName string, poll time.Duration) types.CounterInfo {
	l := cfg.Layout()
	info := types.CounterInfo{
		Bus:    busName,
		Layout: l.String(),
		Widths: l.Widths(),
		PollMs: int(poll / time.Millisecond),
	}
	for _, su := range cfg.Setups() {
		info.Channels = append(info.Channels, types.ChannelSetup{
			Direction: su.Direction.String(),
			ZSignal:   su.ZSignal.String(),
		})
	}
	return info
}

func fullStatusValue(fs icmd.FullStatus, ts int64) types.FullStatusValue {
	var v types.FullStatusValue
	v.Raw[0], v.Raw[1], v.Raw[2] = fs.Bytes()

	v.Overflow = [3]bool{fs.Cnt0Overflow == icmd.Overflow, fs.Cnt1Overflow == icmd.Overflow, fs.Cnt2Overflow == icmd.Overflow}
	v.ABError = [3]bool{
		fs.Cnt0ABErr == icmd.DecodificationError,
		fs.Cnt1ABErr == icmd.DecodificationError,
		fs.Cnt2ABErr == icmd.DecodificationError,
	}
	v.Zero = [3]bool{fs.Cnt0Zero == icmd.Zero, fs.Cnt1Zero == icmd.Zero, fs.Cnt2Zero == icmd.Zero}
	v.Undervolt = fs.Power == icmd.Undervoltage

	v.RefValid = fs.RefRegister == icmd.RegisterOK
	v.UPDValid = fs.UPDRegister == icmd.RegisterOK
	v.RefOverflow = fs.RefCounter == icmd.Overflow

	v.ExtWarning = fs.ExtWarning == icmd.Warning
	v.ExtError = fs.ExtError == icmd.Error
	v.Collision = fs.Communication == icmd.Collision
	v.TouchProbe = fs.TouchProbe == icmd.TouchProbeUpdated
	v.TPIHigh = fs.TPI == icmd.PinHigh
	v.SSIEnabled = fs.SSI == icmd.InterfaceEnabled
	v.TS = ts
	return v
}

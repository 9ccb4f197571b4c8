package memory

import (
	"testing"
)

// TestRTCDumpRestoreRoundTrip exercises spec.md's testable property:
// from_dump(dump(rtc)) == rtc, for both the Halted and Counting variants.
func TestRTCDumpRestoreRoundTrip(t *testing.T) {
	t.Run("Halted", func(t *testing.T) {
		rtc := newRTC()
		rtc.haltedSecs = 1234
		rtc.halted = true

		restored := rtcFromDump(rtc.dump())

		if restored.halted != rtc.halted || restored.haltedSecs != rtc.haltedSecs {
			t.Errorf("round-trip mismatch: got %+v, want %+v", restored, rtc)
		}
	})

	t.Run("Counting", func(t *testing.T) {
		rtc := newRTC()
		rtc.start(1_700_000_000)

		restored := rtcFromDump(rtc.dump())

		if restored.halted != rtc.halted || restored.zeroRefUnix != rtc.zeroRefUnix {
			t.Errorf("round-trip mismatch: got %+v, want %+v", restored, rtc)
		}

		now := int64(1_700_000_100)
		if restored.counter(now) != rtc.counter(now) {
			t.Errorf("counter mismatch after round-trip: got %d, want %d",
				restored.counter(now), rtc.counter(now))
		}
	})
}

// TestRTCCounterNeverNegative exercises invariant (iv): RTC Counting never
// observes a negative counter, even when the wall clock appears to have
// moved backwards relative to the zero reference.
func TestRTCCounterNeverNegative(t *testing.T) {
	rtc := newRTC()
	rtc.start(1000)

	if got := rtc.counter(500); got != 0 {
		t.Errorf("counter() with now < zeroRef = %d; want 0", got)
	}
}

// TestRTCStopStartPreservesCounter checks that toggling Halted freezes and
// resumes the counter value rather than resetting it.
func TestRTCStopStartPreservesCounter(t *testing.T) {
	rtc := newRTC()
	rtc.start(1000)

	rtc.stop(1060)
	if got := rtc.counter(2000); got != 60 {
		t.Errorf("counter() while halted = %d; want 60 (frozen)", got)
	}

	rtc.start(5000)
	if got := rtc.counter(5010); got != 70 {
		t.Errorf("counter() after resume = %d; want 70", got)
	}
}

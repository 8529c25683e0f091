package browser

import (
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// RandomDelay waits for a random duration between min and max milliseconds
func RandomDelay(min, max int) {
	if min >= max {
		time.Sleep(time.Duration(min) * time.Millisecond)
		return
	}
	duration := rand.Intn(max-min+1) + min
	time.Sleep(time.Duration(duration) * time.Millisecond)
}

// HumanScroll scrolls the page down in steps so lazy-loaded results render,
// then moves back up a little like a reader would.
func HumanScroll(page playwright.Page) error {
	for i := 0; i < 4; i++ {
		if _, err := page.Evaluate("window.scrollBy(0, window.innerHeight)"); err != nil {
			return err
		}
		RandomDelay(200, 500)
	}
	_, err := page.Evaluate("window.scrollBy(0, -200)")
	return err
}

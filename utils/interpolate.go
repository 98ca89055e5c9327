// SPDX-License-Identifier: EPL-2.0

package utils

// CatmullRom evaluates the Catmull-Rom spline through p at t in [0, 1],
// where t=0 yields p[1] and t=1 yields p[2].
func CatmullRom(p [4]float32, t float32) float32 {
	c3 := 0.5 * (3*(p[1]-p[2]) + p[3] - p[0])
	c2 := p[0] - 2.5*p[1] + 2*p[2] - 0.5*p[3]
	c1 := 0.5 * (p[2] - p[0])
	return ((c3*t+c2)*t+c1)*t + p[1]
}

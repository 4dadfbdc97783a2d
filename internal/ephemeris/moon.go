package ephemeris

import "math"

// lunarTerm is one periodic term of the lunar theory: multiples of D, M, M', F and the
// coefficients for longitude (1e-6 degree) and distance (1e-3 km).
type lunarTerm struct {
	d, m, mp, f int
	l, r        float64
}

var lunarLongitude = []lunarTerm{
	{0, 0, 1, 0, 6288774, -20905355},
	{2, 0, -1, 0, 1274027, -3699111},
	{2, 0, 0, 0, 658314, -2955968},
	{0, 0, 2, 0, 213618, -569925},
	{0, 1, 0, 0, -185116, 48888},
	{0, 0, 0, 2, -114332, -3149},
	{2, 0, -2, 0, 58793, 246158},
	{2, -1, -1, 0, 57066, -152138},
	{2, 0, 1, 0, 53322, -170733},
	{2, -1, 0, 0, 45758, -204586},
	{0, 1, -1, 0, -40923, -129620},
	{1, 0, 0, 0, -34720, 108743},
	{0, 1, 1, 0, -30383, 104755},
	{2, 0, 0, -2, 15327, 10321},
	{0, 0, 1, 2, -12528, 0},
	{0, 0, 1, -2, 10980, 79661},
	{4, 0, -1, 0, 10675, -34782},
	{0, 0, 3, 0, 10034, -23210},
	{4, 0, -2, 0, 8548, -21636},
	{2, 1, -1, 0, -7888, 24208},
	{2, 1, 0, 0, -6766, 30824},
	{1, 0, -1, 0, -5163, -8379},
	{1, 1, 0, 0, 4987, -16675},
	{2, -1, 1, 0, 4036, -12831},
	{2, 0, 2, 0, 3994, -10445},
	{4, 0, 0, 0, 3861, -11650},
	{2, 0, -3, 0, 3665, 14403},
	{0, 1, -2, 0, -2689, -7003},
	{2, 0, -1, 2, -2602, 0},
	{2, -1, -2, 0, 2390, 10056},
	{1, 0, 1, 0, -2348, 6322},
	{2, -2, 0, 0, 2236, -9884},
	{0, 1, 2, 0, -2120, 5751},
	{0, 2, 0, 0, -2069, 0},
	{2, -2, -1, 0, 2048, -4950},
	{2, 0, 1, -2, -1773, 4130},
	{2, 0, 0, 2, -1595, 0},
	{4, -1, -1, 0, 1215, -3958},
	{0, 0, 2, 2, -1110, 0},
	{3, 0, -1, 0, -892, 3258},
	{2, 1, 1, 0, -810, 2616},
	{4, -1, -2, 0, 759, -1897},
	{0, 2, -1, 0, -713, -2117},
	{2, 2, -1, 0, -700, 2354},
	{2, 1, -2, 0, 691, 0},
	{2, -1, 0, -2, 596, 0},
	{4, 0, 1, 0, 549, -1423},
	{0, 0, 4, 0, 537, -1117},
	{4, -1, 0, 0, 520, -1571},
	{1, 0, -2, 0, -487, -1739},
	{2, 1, 0, -2, -399, 0},
	{0, 0, 2, -2, -381, -4421},
	{1, 1, 1, 0, 351, 0},
	{3, 0, -2, 0, -340, 0},
	{4, 0, -3, 0, 330, 0},
	{2, -1, 2, 0, 327, 0},
	{0, 2, 1, 0, -323, 1165},
	{1, 1, -1, 0, 299, 0},
	{2, 0, 3, 0, 294, 0},
	{2, 0, -1, -2, 0, 8752},
}

// lunarLatitude reuses lunarTerm with l holding the latitude coefficient.
var lunarLatitude = []lunarTerm{
	{0, 0, 0, 1, 5128122, 0},
	{0, 0, 1, 1, 280602, 0},
	{0, 0, 1, -1, 277693, 0},
	{2, 0, 0, -1, 173237, 0},
	{2, 0, -1, 1, 55413, 0},
	{2, 0, -1, -1, 46271, 0},
	{2, 0, 0, 1, 32573, 0},
	{0, 0, 2, 1, 17198, 0},
	{2, 0, 1, -1, 9266, 0},
	{0, 0, 2, -1, 8822, 0},
	{2, -1, 0, -1, 8216, 0},
	{2, 0, -2, -1, 4324, 0},
	{2, 0, 1, 1, 4200, 0},
	{2, 1, 0, -1, -3359, 0},
	{2, -1, -1, 1, 2463, 0},
	{2, -1, 0, 1, 2211, 0},
	{2, -1, -1, -1, 2065, 0},
	{0, 1, -1, -1, -1870, 0},
	{4, 0, -1, -1, 1828, 0},
	{0, 1, 0, 1, -1794, 0},
	{0, 0, 0, 3, -1749, 0},
	{0, 1, -1, 1, -1565, 0},
	{1, 0, 0, 1, -1491, 0},
	{0, 1, 1, 1, -1475, 0},
	{0, 1, 1, -1, -1410, 0},
	{0, 1, 0, -1, -1344, 0},
	{1, 0, 0, -1, -1335, 0},
	{0, 0, 3, 1, 1107, 0},
	{4, 0, 0, -1, 1021, 0},
	{4, 0, -1, 1, 833, 0},
}

// moonPosition returns the geometric longitude and latitude of the Moon in degrees,
// referred to the mean equinox of date, and its distance in km.
func moonPosition(T float64) (lon, lat, dist float64) {
	T2, T3, T4 := T*T, T*T*T, T*T*T*T
	Lp := 218.3164477 + 481267.88123421*T - 0.0015786*T2 + T3/538841 - T4/65194000
	D := 297.8501921 + 445267.1114034*T - 0.0018819*T2 + T3/545868 - T4/113065000
	M := 357.5291092 + 35999.0502909*T - 0.0001536*T2 + T3/24490000
	Mp := 134.9633964 + 477198.8675055*T + 0.0087414*T2 + T3/69699 - T4/14712000
	F := 93.2720950 + 483202.0175233*T - 0.0036539*T2 - T3/3526000 + T4/863310000
	A1 := 119.75 + 131.849*T
	A2 := 53.09 + 479264.290*T
	A3 := 313.45 + 481266.484*T
	E := 1 - 0.002516*T - 0.0000074*T2

	eccentricity := func(m int) float64 {
		switch m {
		case 1, -1:
			return E
		case 2, -2:
			return E * E
		}
		return 1
	}

	var sl, sr, sb float64
	for _, t := range lunarLongitude {
		arg := float64(t.d)*D + float64(t.m)*M + float64(t.mp)*Mp + float64(t.f)*F
		e := eccentricity(t.m)
		sl += t.l * e * sin(arg)
		sr += t.r * e * cos(arg)
	}
	for _, t := range lunarLatitude {
		arg := float64(t.d)*D + float64(t.m)*M + float64(t.mp)*Mp + float64(t.f)*F
		sb += t.l * eccentricity(t.m) * sin(arg)
	}
	sl += 3958*sin(A1) + 1962*sin(Lp-F) + 318*sin(A2)
	sb += -2235*sin(Lp) + 382*sin(A3) + 175*sin(A1-F) + 175*sin(A1+F) + 127*sin(Lp-Mp) - 115*sin(Lp+Mp)

	lon = math.Mod(Lp+sl/1e6, 360)
	return lon, sb / 1e6, 385000.56 + sr/1000
}

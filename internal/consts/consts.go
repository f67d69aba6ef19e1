package consts

const (
	CHARGE    = 1.6021918e-19 // Elementary charge (C)
	BOLTZMANN = 1.3806226e-23 // Boltzmann constant (J/K)
	KELVIN    = 273.15        // Kelvin temperature (K)

	GREF = 1000.0 // STC irradiance (W/m2)
	TREF = 25.0   // STC cell temperature (degC)
)

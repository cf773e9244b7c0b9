package importer

// Template returns the suggested file name and content for an entity's CSV
// template: the expected header row plus one example row.
func Template(entity Entity) (filename, content string) {
	switch entity {
	case EntityPatients:
		return "plantilla_pacientes.csv",
			"nombre_completo,telefono,sexo,cumpleanos,zonas_tratamiento,notas\n" +
				"Ana Pérez,9841234567,F,1992-04-15,axilas;piernas,Paciente frecuente\n"
	case EntityPayments:
		return "plantilla_pagos.csv",
			"cliente,monto,metodo_pago,fecha_pago,concepto\n" +
				"Ana Pérez,350,efectivo,2026-03-12,Sesión 3 axilas\n"
	case EntityAppointments:
		return "plantilla_citas.csv",
			"cliente,servicio,fecha_hora,numero_sesion,precio_sesion\n" +
				"Ana Pérez,Depilación axilas,2026-03-15 10:30,3,350\n"
	case EntityServices:
		return "plantilla_servicios.csv",
			"nombre,zona,precio_base,duracion_minutos,sesiones_recomendadas,tecnologia\n" +
				"Depilación axilas,axilas,350,30,10,Soprano Ice\n"
	}
	return "", ""
}

package snapshot

// Merge объединяет несколько выборок одного семейства по идентификатору.
// Запись из более поздней выборки перекрывает более раннюю; порядок результата
// соответствует первому появлению идентификатора.
func Merge(listings ...[]Record) []Record {
	pos := make(map[string]int)
	var out []Record
	for _, listing := range listings {
		for _, rec := range listing {
			if i, ok := pos[rec.ID]; ok {
				out[i] = rec
				continue
			}
			pos[rec.ID] = len(out)
			out = append(out, rec)
		}
	}
	return out
}
